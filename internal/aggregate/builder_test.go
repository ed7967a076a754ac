package aggregate

import (
	"errors"
	"math"
	"testing"

	"github.com/radiusdt/growth-report/internal/models"
)

func rec(app, week, campaign string, spend float64) models.CampaignRecord {
	return models.CampaignRecord{
		App:          models.AppInfo{ID: app, Name: "App " + app},
		CampaignID:   campaign,
		CampaignName: campaign,
		WeekStart:    week,
		WeekEnd:      week + "+6",
		Spend:        spend,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBuildFlat(t *testing.T) {
	records := []models.CampaignRecord{
		rec("a", "2024-01-01", "c1", 10),
		rec("a", "2024-01-01", "c2", 30),
		rec("a", "2024-01-08", "c1", 5),
		rec("b", "2024-01-01", "c3", 7),
	}
	tree, err := Build(models.ShapeFlat, records)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Apps) != 2 {
		t.Fatalf("apps = %d", len(tree.Apps))
	}
	a := tree.Apps["a"]
	if len(a.Weeks) != 2 {
		t.Fatalf("weeks = %d", len(a.Weeks))
	}
	w := a.Weeks["2024-01-01"]
	if w.Groups != nil {
		t.Error("flat week must not carry groups")
	}
	if len(w.Campaigns) != 2 || w.Campaigns[0].CampaignID != "c2" {
		t.Errorf("campaigns not sorted by spend: %+v", w.Campaigns)
	}
	if got := tree.CampaignCount(); got != len(records) {
		t.Errorf("campaign count = %d, want %d", got, len(records))
	}
	if err := Check(tree); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestBuildSourceApp(t *testing.T) {
	r1 := rec("a", "2024-01-01", "c1", 10)
	r1.SourceApp, r1.SourceAppID = "Pub - Runner", "com.pub.runner"
	r2 := rec("a", "2024-01-01", "c2", 20)
	r2.SourceApp, r2.SourceAppID = "Pub - Runner", "com.pub.runner"
	r3 := rec("a", "2024-01-01", "c3", 5)
	r3.SourceApp = "Moloco Source"
	r4 := rec("a", "2024-01-01", "c4", 1)

	tree, err := Build(models.ShapeSourceApp, []models.CampaignRecord{r1, r2, r3, r4})
	if err != nil {
		t.Fatal(err)
	}
	w := tree.Apps["a"].Weeks["2024-01-01"]
	if len(w.Campaigns) != 0 {
		t.Error("grouped week must not carry direct campaigns")
	}
	if len(w.Groups) != 3 {
		t.Fatalf("groups = %d", len(w.Groups))
	}
	g := w.Groups["com.pub.runner"]
	if g == nil || g.Name != "Pub - Runner" || g.Level != models.LevelSourceApp || len(g.Campaigns) != 2 {
		t.Fatalf("bundle group = %+v", g)
	}
	if g.Campaigns[0].CampaignID != "c2" {
		t.Errorf("group campaigns not sorted by spend")
	}
	if w.Groups["Moloco Source"] == nil {
		t.Error("name-keyed group missing")
	}
	if u := w.Groups[UnknownGroupID]; u == nil || u.Name != UnknownGroupID {
		t.Errorf("unknown group = %+v", u)
	}
	order := w.GroupsBySpend()
	if order[0].ID != "com.pub.runner" {
		t.Errorf("groups by spend start with %s", order[0].ID)
	}
}

func TestBuildNetworkMerges(t *testing.T) {
	r1 := rec("a", "2024-01-01", "n1", 100)
	r1.NetworkID, r1.NetworkName = "n1", "AppLovin"
	r1.Installs, r1.CPI, r1.RoasD7, r1.ERoasForecast, r1.EProfitForecast = 50, 2, 10, 100, 20
	r2 := rec("a", "2024-01-01", "n1", 300)
	r2.NetworkID, r2.NetworkName = "n1", "AppLovin"
	r2.Installs, r2.CPI, r2.RoasD7, r2.ERoasForecast, r2.EProfitForecast = 150, 4, 20, 200, -5

	tree, err := Build(models.ShapeNetwork, []models.CampaignRecord{r1, r2})
	if err != nil {
		t.Fatal(err)
	}
	g := tree.Apps["a"].Weeks["2024-01-01"].Groups["n1"]
	if g == nil || len(g.Campaigns) != 1 {
		t.Fatalf("network group = %+v", g)
	}
	m := g.Campaigns[0]
	if m.Spend != 400 || m.Installs != 200 || m.EProfitForecast != 15 {
		t.Errorf("sums = spend %v installs %v profit %v", m.Spend, m.Installs, m.EProfitForecast)
	}
	// installs-weighted: (2*50 + 4*150) / 200
	if !approx(m.CPI, 3.5) {
		t.Errorf("cpi = %v", m.CPI)
	}
	// spend-weighted: (10*100 + 20*300) / 400
	if !approx(m.RoasD7, 17.5) {
		t.Errorf("roas d7 = %v", m.RoasD7)
	}
	if !approx(m.ERoasForecast, 175) {
		t.Errorf("eroas = %v", m.ERoasForecast)
	}
	if g.Name != "AppLovin" || g.Level != models.LevelNetwork {
		t.Errorf("group identity = %s/%s", g.Level, g.Name)
	}
}

func TestMergeNetworkZeroWeights(t *testing.T) {
	a := models.CampaignRecord{CPI: 3, RoasD1: 4}
	b := models.CampaignRecord{CPI: 5, RoasD1: 6}
	m := MergeNetwork(a, b)
	if m.CPI != 0 || m.RoasD1 != 0 {
		t.Errorf("zero-weight merge = %v, %v", m.CPI, m.RoasD1)
	}
}

func TestBuildCountry(t *testing.T) {
	r1 := rec("a", "2024-01-01", "Offer_B", 50)
	r1.CountryCode = "DE"
	r2 := rec("a", "2024-01-01", "Offer_A", 10)
	r2.CountryCode = "DE"
	r3 := rec("a", "2024-01-01", "Offer_C", 10)

	tree, err := Build(models.ShapeCountry, []models.CampaignRecord{r1, r2, r3})
	if err != nil {
		t.Fatal(err)
	}
	w := tree.Apps["a"].Weeks["2024-01-01"]
	de := w.Groups["DE"]
	if de == nil || de.Name != "Germany" || de.Level != models.LevelCountry {
		t.Fatalf("DE group = %+v", de)
	}
	if de.Campaigns[0].CampaignName != "Offer_A" {
		t.Errorf("country campaigns not ordered by name")
	}
	if w.Groups[UnknownCountry] == nil {
		t.Error("records without a country code must land in the XX group")
	}
}

func TestExactlyOnePath(t *testing.T) {
	var records []models.CampaignRecord
	for i, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		r := rec("a", "2024-01-01", id, float64(i+1))
		r.SourceAppID = []string{"x", "y", ""}[i%3]
		records = append(records, r)
	}
	tree, err := Build(models.ShapeSourceApp, records)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, app := range tree.Apps {
		for _, w := range app.Weeks {
			for _, c := range w.AllCampaigns() {
				seen[c.CampaignID]++
			}
		}
	}
	for _, r := range records {
		if seen[r.CampaignID] != 1 {
			t.Errorf("%s reachable %d times", r.CampaignID, seen[r.CampaignID])
		}
	}
}

func TestBuildUnknownShape(t *testing.T) {
	_, err := Build(models.Shape("by_weather"), nil)
	if !errors.Is(err, ErrUnknownShape) {
		t.Fatalf("err = %v", err)
	}
}

func TestCheckMismatch(t *testing.T) {
	tree, err := Build(models.ShapeFlat, []models.CampaignRecord{rec("a", "2024-01-01", "c1", 1)})
	if err != nil {
		t.Fatal(err)
	}
	tree.Apps["a"].Weeks["2024-01-01"].Shape = models.ShapeNetwork
	if err := Check(tree); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v", err)
	}

	tree.Shape = models.ShapeNetwork
	if err := Check(tree); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("missing groups: err = %v", err)
	}
}

func TestCountryName(t *testing.T) {
	if got := CountryName("JP"); got != "Japan" {
		t.Errorf("JP = %s", got)
	}
	if got := CountryName("not-a-code"); got != "not-a-code" {
		t.Errorf("invalid = %s", got)
	}
}
