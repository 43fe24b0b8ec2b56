// Package catalog resolves product suggestions to purchasable links.
//
// The static table covers the brands the analysis prompt steers the model
// towards. Lookup uses substring containment on brand and product name, not
// exact matching, because model output rarely reproduces catalog names
// verbatim.
package catalog

import "strings"

// Entry is a resolved purchase target.
type Entry struct {
	URL      string
	ImageURL string
}

// Lookup resolves a brand/product pair to a purchase link. Implementations
// can be swapped for a live catalog service without touching the normalizer.
type Lookup interface {
	Lookup(brand, product string) (Entry, bool)
}

type record struct {
	product string
	entry   Entry
}

// Static is the built-in brand -> product table.
type Static struct {
	entries map[string][]record
}

// NewStatic creates the default static catalog.
func NewStatic() *Static {
	c := &Static{entries: make(map[string][]record)}
	for brand, records := range defaultEntries {
		c.entries[brand] = records
	}
	return c
}

// Lookup matches by case-insensitive substring containment in both
// directions: a model answer of "Fenty Beauty" matches the "fenty" brand
// row, and "Pro Filt'r Soft Matte Foundation" matches the "pro filt'r"
// product row.
func (c *Static) Lookup(brand, product string) (Entry, bool) {
	b := strings.ToLower(strings.TrimSpace(brand))
	p := strings.ToLower(strings.TrimSpace(product))
	if b == "" || p == "" {
		return Entry{}, false
	}

	for key, records := range c.entries {
		if !strings.Contains(b, key) && !strings.Contains(key, b) {
			continue
		}
		for _, r := range records {
			if strings.Contains(p, r.product) || strings.Contains(r.product, p) {
				return r.entry, true
			}
		}
	}

	return Entry{}, false
}

// defaultEntries lists products available in Kenya with Jumia listings.
var defaultEntries = map[string][]record{
	"maybelline": {
		{product: "fit me", entry: Entry{
			URL:      "https://www.jumia.co.ke/maybelline-fit-me-matte-poreless-foundation-230-natural-buff-68631721.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/12/713686/1.jpg",
		}},
		{product: "superstay", entry: Entry{
			URL:      "https://www.jumia.co.ke/maybelline-superstay-matte-ink-liquid-lipstick-65731842.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/24/813567/1.jpg",
		}},
		{product: "lash sensational", entry: Entry{
			URL:      "https://www.jumia.co.ke/maybelline-lash-sensational-mascara-very-black-49120754.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/45/702194/1.jpg",
		}},
	},
	"fenty": {
		{product: "pro filt'r", entry: Entry{
			URL:      "https://www.jumia.co.ke/fenty-beauty-pro-filtr-soft-matte-longwear-foundation-73215984.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/31/920485/1.jpg",
		}},
		{product: "gloss bomb", entry: Entry{
			URL:      "https://www.jumia.co.ke/fenty-beauty-gloss-bomb-universal-lip-luminizer-80154236.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/17/640258/1.jpg",
		}},
	},
	"mac": {
		{product: "ruby woo", entry: Entry{
			URL:      "https://www.jumia.co.ke/mac-retro-matte-lipstick-ruby-woo-51372680.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/29/518306/1.jpg",
		}},
		{product: "studio fix", entry: Entry{
			URL:      "https://www.jumia.co.ke/mac-studio-fix-fluid-spf-15-foundation-62841937.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/52/174920/1.jpg",
		}},
	},
	"zaron": {
		{product: "face primer", entry: Entry{
			URL:      "https://www.jumia.co.ke/zaron-face-primer-38510472.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/83/261904/1.jpg",
		}},
		{product: "lip gloss", entry: Entry{
			URL:      "https://www.jumia.co.ke/zaron-ultra-shine-lip-gloss-90241835.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/74/380125/1.jpg",
		}},
	},
	"huddah": {
		{product: "lipstick", entry: Entry{
			URL:      "https://www.jumia.co.ke/huddah-matte-liquid-lipstick-47291053.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/66/492017/1.jpg",
		}},
	},
	"nivea": {
		{product: "perfect & radiant", entry: Entry{
			URL:      "https://www.jumia.co.ke/nivea-perfect-radiant-even-tone-day-cream-spf15-21475906.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/90/135824/1.jpg",
		}},
	},
	"garnier": {
		{product: "even & matte", entry: Entry{
			URL:      "https://www.jumia.co.ke/garnier-even-matte-vitamin-c-booster-serum-34820617.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/58/926403/1.jpg",
		}},
		{product: "micellar", entry: Entry{
			URL:      "https://www.jumia.co.ke/garnier-micellar-cleansing-water-400ml-15938246.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/41/583790/1.jpg",
		}},
	},
	"cerave": {
		{product: "foaming cleanser", entry: Entry{
			URL:      "https://www.jumia.co.ke/cerave-foaming-facial-cleanser-473ml-72046318.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/37/810263/1.jpg",
		}},
		{product: "moisturising lotion", entry: Entry{
			URL:      "https://www.jumia.co.ke/cerave-moisturising-lotion-473ml-80395127.html",
			ImageURL: "https://ke.jumia.is/unsafe/fit-in/500x500/filters:fill(white)/product/19/670835/1.jpg",
		}},
	},
}
