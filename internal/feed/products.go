package feed

import (
	"strings"

	"github.com/wxrouter/wxrouter/internal/models"
)

// Product describes one SPC GeoJSON product endpoint.
type Product struct {
	Name string // local name, e.g. "day1otlk_cat_lyr"
	URL  string
	Kind models.OutlookKind
}

// spcFiles is the fixed list of SPC products polled each pass. File names
// use underscores; the published URLs use dots before the lyr/nolyr suffix.
var spcFiles = []string{
	"day1fw_dryt_lyr.geojson",
	"day1fw_dryt_nolyr.geojson",
	"day1fw_windrh_lyr.geojson",
	"day1fw_windrh_nolyr.geojson",

	"day1otlk_cat_lyr.geojson",
	"day1otlk_cat_nolyr.geojson",
	"day1otlk_hail_lyr.geojson",
	"day1otlk_hail_nolyr.geojson",
	"day1otlk_sighail_lyr.geojson",
	"day1otlk_sighail_nolyr.geojson",
	"day1otlk_sigtorn_lyr.geojson",
	"day1otlk_sigtorn_nolyr.geojson",
	"day1otlk_sigwind_lyr.geojson",
	"day1otlk_sigwind_nolyr.geojson",
	"day1otlk_torn_lyr.geojson",
	"day1otlk_torn_nolyr.geojson",
	"day1otlk_wind_lyr.geojson",
	"day1otlk_wind_nolyr.geojson",

	"day2fw_dryt_lyr.geojson",
	"day2fw_dryt_nolyr.geojson",

	"day2otlk_cat_lyr.geojson",
	"day2otlk_cat_nolyr.geojson",
	"day2otlk_hail_lyr.geojson",
	"day2otlk_hail_nolyr.geojson",
	"day2otlk_sighail_lyr.geojson",
	"day2otlk_sighail_nolyr.geojson",
	"day2otlk_sigtorn_lyr.geojson",
	"day2otlk_sigtorn_nolyr.geojson",
	"day2otlk_sigwind_lyr.geojson",
	"day2otlk_sigwind_nolyr.geojson",
	"day2otlk_torn_lyr.geojson",
	"day2otlk_torn_nolyr.geojson",
	"day2otlk_wind_lyr.geojson",
	"day2otlk_wind_nolyr.geojson",

	"day3otlk_cat_lyr.geojson",
	"day3otlk_cat_nolyr.geojson",
	"day3otlk_prob_lyr.geojson",
	"day3otlk_prob_nolyr.geojson",
	"day3otlk_sigprob_lyr.geojson",
	"day3otlk_sigprob_nolyr.geojson",

	"day4prob_lyr.geojson",
	"day4prob_nolyr.geojson",
}

// productFromFile derives a Product from an SPC file name: fire-weather
// files live under /products/fire_wx/, everything else under
// /products/outlook/, and the _lyr/_nolyr suffix becomes .lyr/.nolyr in
// the published URL.
func productFromFile(fname string) Product {
	kind := models.ConvectiveOutlook
	category := "outlook"
	if strings.HasPrefix(fname, "day1fw") || strings.HasPrefix(fname, "day2fw") {
		kind = models.FireOutlook
		category = "fire_wx"
	}

	urlName := fname
	if strings.HasSuffix(fname, "_nolyr.geojson") {
		urlName = strings.TrimSuffix(fname, "_nolyr.geojson") + ".nolyr.geojson"
	} else if strings.HasSuffix(fname, "_lyr.geojson") {
		urlName = strings.TrimSuffix(fname, "_lyr.geojson") + ".lyr.geojson"
	}

	return Product{
		Name: strings.TrimSuffix(fname, ".geojson"),
		URL:  "https://www.spc.noaa.gov/products/" + category + "/" + urlName,
		Kind: kind,
	}
}

// Products returns the full SPC product list in polling order.
func Products() []Product {
	out := make([]Product, 0, len(spcFiles))
	for _, f := range spcFiles {
		out = append(out, productFromFile(f))
	}
	return out
}
