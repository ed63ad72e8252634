package seo

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCSV(t *testing.T) {
	in := `path,engine,impressions,clicks,ctr
/,google,"1,200",96,0.08
# comment lines are skipped
/pricing,naver,300,9,3%
/about,bing,40
`
	got, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ParseCSV() error: %v", err)
	}
	want := []Row{
		{Path: "/", Engine: "google", Impressions: 1200, Clicks: 96, CTR: 0.08},
		{Path: "/pricing", Engine: "naver", Impressions: 300, Clicks: 9, CTR: 0.03},
		{Path: "/about", Engine: "bing", Impressions: 40},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseCSV() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCSV_NoHeader(t *testing.T) {
	got, err := ParseCSV(strings.NewReader("/,google,10,1,0.1\n"))
	if err != nil {
		t.Fatalf("ParseCSV() error: %v", err)
	}
	if len(got) != 1 || got[0].Impressions != 10 {
		t.Errorf("ParseCSV() = %+v", got)
	}
}

func TestParseCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"too few columns":     "/,google\n",
		"bad impressions":     "/,google,many\n",
		"bad clicks":          "/,google,1,x\n",
		"bad ctr":             "/,google,1,1,abc\n",
		"unterminated quotes": "\"/,google,1\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseCSV(strings.NewReader(in)); err == nil {
				t.Error("ParseCSV() = nil error, want error")
			}
		})
	}
}
