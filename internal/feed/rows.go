package feed

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Row is one usable price record from the retail-sales feed.
type Row struct {
	Period     string // e.g. "2024-03"
	Region     string // state code, or "national" when the feed omits one
	RegionName string
	Price      decimal.Decimal // $ per kWH
	Sales      decimal.Decimal // MWH, zero when not reported
}

// eiaEnvelope mirrors the v2 API response shape:
// { "response": { "data": [ { "period", "price", "stateid", ... } ] } }.
type eiaEnvelope struct {
	Response struct {
		Total json.Number `json:"total"`
		Data  []eiaRecord `json:"data"`
	} `json:"response"`
}

type eiaRecord struct {
	Period           string    `json:"period"`
	StateID          string    `json:"stateid"`
	StateDescription string    `json:"stateDescription"`
	Price            flexFloat `json:"price"`
	Sales            flexFloat `json:"sales"`
}

// flexFloat tolerates the feed returning numbers as JSON numbers, strings,
// or null.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Unparseable values are treated as missing, not fatal; the row
		// filter drops them.
		return nil
	}
	f.Value = v
	f.Valid = true
	return nil
}

// usableRows converts raw records into rows, discarding anything without a
// positive price.
func usableRows(records []eiaRecord) []Row {
	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if !rec.Price.Valid || rec.Price.Value <= 0 {
			continue
		}
		region := strings.TrimSpace(rec.StateID)
		name := strings.TrimSpace(rec.StateDescription)
		if region == "" {
			region = "national"
			if name == "" {
				name = "National"
			}
		}
		if name == "" {
			name = stateName(region)
		}
		row := Row{
			Period:     rec.Period,
			Region:     region,
			RegionName: name,
			Price:      decimal.NewFromFloat(rec.Price.Value),
		}
		if rec.Sales.Valid && rec.Sales.Value > 0 {
			row.Sales = decimal.NewFromFloat(rec.Sales.Value)
		}
		rows = append(rows, row)
	}
	return rows
}

// latestByRegion keeps one row per region: the one with the most recent
// period. When two rows for a region share a period, the first one in feed
// order wins, and the output preserves first-seen region order so repeated
// fetches of the same payload produce identical results.
func latestByRegion(rows []Row) []Row {
	best := make(map[string]int, len(rows))
	order := make([]string, 0, len(rows))
	for i, row := range rows {
		j, seen := best[row.Region]
		if !seen {
			best[row.Region] = i
			order = append(order, row.Region)
			continue
		}
		// Periods are zero-padded "YYYY-MM" labels; string comparison is
		// chronological.
		if row.Period > rows[j].Period {
			best[row.Region] = i
		}
	}
	out := make([]Row, 0, len(order))
	for _, region := range order {
		out = append(out, rows[best[region]])
	}
	return out
}

// displayPeriod renders "2024-03" as "Mar 2024". Unparseable labels pass
// through untouched.
func displayPeriod(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return t.Format("Jan 2006")
}
