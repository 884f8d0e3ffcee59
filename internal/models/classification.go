package models

import "time"

// Classification describes a ticker's asset class and sector
type Classification struct {
	Ticker     string    `json:"ticker" msgpack:"ticker"`
	AssetClass string    `json:"asset_class" msgpack:"asset_class"`
	Sector     string    `json:"sector,omitempty" msgpack:"sector"`
	Subtype    string    `json:"subtype,omitempty" msgpack:"subtype"`
	Known      bool      `json:"known" msgpack:"known"`
	UpdatedAt  time.Time `json:"updated_at" msgpack:"updated_at"`
}

// UnknownClassification is returned for tickers nobody has classified yet
func UnknownClassification(ticker string) Classification {
	return Classification{
		Ticker:     ticker,
		AssetClass: AssetTypeOther,
		Sector:     "Unknown",
		Subtype:    "Unknown",
	}
}
