package screener

import "github.com/shuweilin/twsignal/internal/engine"

// DefaultUniverse is the screening universe: Taiwan 50 constituents plus
// liquid mid caps. Tickers use the Yahoo ".TW" suffix for the TWSE listing.
func DefaultUniverse() []engine.Instrument {
	return []engine.Instrument{
		{Ticker: "2330.TW", Name: "TSMC"},
		{Ticker: "2317.TW", Name: "Hon Hai"},
		{Ticker: "2454.TW", Name: "MediaTek"},
		{Ticker: "2308.TW", Name: "Delta Electronics"},
		{Ticker: "2881.TW", Name: "Fubon Financial"},
		{Ticker: "2882.TW", Name: "Cathay Financial"},
		{Ticker: "2303.TW", Name: "UMC"},
		{Ticker: "1301.TW", Name: "Formosa Plastics"},
		{Ticker: "1303.TW", Name: "Nan Ya Plastics"},
		{Ticker: "2002.TW", Name: "China Steel"},
		{Ticker: "2912.TW", Name: "President Chain Store"},
		{Ticker: "2886.TW", Name: "Mega Financial"},
		{Ticker: "2891.TW", Name: "CTBC Financial"},
		{Ticker: "3711.TW", Name: "ASE Technology"},
		{Ticker: "2382.TW", Name: "Quanta Computer"},
		{Ticker: "2412.TW", Name: "Chunghwa Telecom"},
		{Ticker: "1326.TW", Name: "Formosa Chemicals"},
		{Ticker: "2884.TW", Name: "E.Sun Financial"},
		{Ticker: "5880.TW", Name: "Taiwan Cooperative"},
		{Ticker: "2892.TW", Name: "First Financial"},
		{Ticker: "2357.TW", Name: "ASUS"},
		{Ticker: "3008.TW", Name: "Largan Precision"},
		{Ticker: "2327.TW", Name: "Yageo"},
		{Ticker: "6505.TW", Name: "Formosa Petrochemical"},
		{Ticker: "2395.TW", Name: "Advantech"},
		{Ticker: "2379.TW", Name: "Realtek"},
		{Ticker: "3034.TW", Name: "Novatek"},
		{Ticker: "2474.TW", Name: "Catcher Technology"},
		{Ticker: "3037.TW", Name: "Unimicron"},
		{Ticker: "2301.TW", Name: "Lite-On Technology"},
		{Ticker: "2345.TW", Name: "Accton Technology"},
		{Ticker: "3231.TW", Name: "Wistron"},
		{Ticker: "2324.TW", Name: "Compal Electronics"},
		{Ticker: "3017.TW", Name: "Asia Vital Components"},
		{Ticker: "6669.TW", Name: "Wiwynn"},
		{Ticker: "1216.TW", Name: "Uni-President"},
		{Ticker: "2207.TW", Name: "Hotai Motor"},
		{Ticker: "9910.TW", Name: "Feng Tay"},
		{Ticker: "1101.TW", Name: "Taiwan Cement"},
		{Ticker: "2105.TW", Name: "Cheng Shin Rubber"},
		{Ticker: "2801.TW", Name: "Chang Hwa Bank"},
		{Ticker: "5871.TW", Name: "Chailease Holding"},
		{Ticker: "2883.TW", Name: "China Development Financial"},
		{Ticker: "2337.TW", Name: "Macronix"},
		{Ticker: "2344.TW", Name: "Winbond"},
		{Ticker: "2409.TW", Name: "AUO"},
		{Ticker: "3481.TW", Name: "Innolux"},
		{Ticker: "2603.TW", Name: "Evergreen Marine"},
		{Ticker: "2609.TW", Name: "Yang Ming Marine"},
		{Ticker: "2615.TW", Name: "Wan Hai Lines"},
	}
}
