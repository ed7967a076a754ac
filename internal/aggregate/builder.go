// Package aggregate folds normalized campaign records into the
// App → Week → (group →) Campaign tree.
package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/radiusdt/growth-report/internal/models"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrUnknownShape is returned for a shape the builder cannot produce.
	ErrUnknownShape = errors.New("unknown tree shape")
	// ErrShapeMismatch is returned when a week's shape differs from the tree's.
	ErrShapeMismatch = errors.New("week shape does not match tree shape")
)

// Group ids used when a record has no value for the grouping field.
const (
	UnknownGroupID = "unknown"
	UnknownCountry = "XX"
)

// Build folds records into a tree of the given shape. Every record ends up
// at exactly one leaf position; weeks are keyed by their Monday.
func Build(shape models.Shape, records []models.CampaignRecord) (*models.Tree, error) {
	if !shape.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
	tree := &models.Tree{Shape: shape, Apps: make(map[string]*models.AppEntity)}
	for _, rec := range records {
		app, ok := tree.Apps[rec.App.ID]
		if !ok {
			app = &models.AppEntity{
				AppID:    rec.App.ID,
				AppName:  rec.App.Name,
				Platform: rec.App.Platform,
				BundleID: rec.App.BundleID,
				Weeks:    make(map[string]*models.WeekBucket),
			}
			tree.Apps[rec.App.ID] = app
		}
		week, ok := app.Weeks[rec.WeekStart]
		if !ok {
			week = &models.WeekBucket{WeekStart: rec.WeekStart, WeekEnd: rec.WeekEnd, Shape: shape}
			if shape != models.ShapeFlat {
				week.Groups = make(map[string]*models.Group)
			}
			app.Weeks[rec.WeekStart] = week
		}
		add(week, rec)
	}
	for _, app := range tree.Apps {
		for _, week := range app.Weeks {
			sortWeek(week)
		}
	}
	return tree, nil
}

func add(week *models.WeekBucket, rec models.CampaignRecord) {
	switch week.Shape {
	case models.ShapeFlat:
		week.Campaigns = append(week.Campaigns, rec)

	case models.ShapeSourceApp:
		id := rec.SourceAppID
		if id == "" {
			id = rec.SourceApp
		}
		if id == "" {
			id = UnknownGroupID
		}
		g := group(week, models.LevelSourceApp, id, rec.SourceApp)
		g.Campaigns = append(g.Campaigns, rec)

	case models.ShapeNetwork:
		id := rec.NetworkID
		if id == "" {
			id = UnknownGroupID
		}
		g := group(week, models.LevelNetwork, id, rec.NetworkName)
		if len(g.Campaigns) == 0 {
			g.Campaigns = []models.CampaignRecord{rec}
			return
		}
		g.Campaigns[0] = MergeNetwork(g.Campaigns[0], rec)

	case models.ShapeCountry:
		code := rec.CountryCode
		if code == "" {
			code = UnknownCountry
		}
		g := group(week, models.LevelCountry, code, CountryName(code))
		g.Campaigns = append(g.Campaigns, rec)
	}
}

func group(week *models.WeekBucket, level models.Level, id, name string) *models.Group {
	g, ok := week.Groups[id]
	if !ok {
		if name == "" {
			name = id
		}
		g = &models.Group{Level: level, ID: id, Name: name}
		week.Groups[id] = g
	}
	return g
}

// sortWeek orders leaf campaigns by spend descending (campaign id breaks
// ties). Country groups order their campaigns by name so the campaigns of
// one base name stay together.
func sortWeek(week *models.WeekBucket) {
	bySpend := func(cs []models.CampaignRecord) {
		sort.SliceStable(cs, func(i, j int) bool {
			if cs[i].Spend != cs[j].Spend {
				return cs[i].Spend > cs[j].Spend
			}
			return cs[i].CampaignID < cs[j].CampaignID
		})
	}
	if week.Shape == models.ShapeFlat {
		bySpend(week.Campaigns)
		return
	}
	for _, g := range week.Groups {
		if g.Level == models.LevelCountry {
			sort.SliceStable(g.Campaigns, func(i, j int) bool {
				a, b := g.Campaigns[i], g.Campaigns[j]
				if a.CampaignName != b.CampaignName {
					return a.CampaignName < b.CampaignName
				}
				return a.CampaignID < b.CampaignID
			})
			continue
		}
		bySpend(g.Campaigns)
	}
}

// CountryName returns the English name of an ISO 3166 code, or the code.
func CountryName(code string) string {
	region, err := language.ParseRegion(code)
	if err != nil {
		return code
	}
	if name := display.Regions(language.English).Name(region); name != "" {
		return name
	}
	return code
}

// Check verifies that every week of the tree carries the tree's shape and
// the level the shape requires.
func Check(tree *models.Tree) error {
	for _, app := range tree.Apps {
		for _, week := range app.Weeks {
			if week.Shape != tree.Shape {
				return fmt.Errorf("%w: app %s week %s is %s, tree is %s",
					ErrShapeMismatch, app.AppName, week.WeekStart, week.Shape, tree.Shape)
			}
			if tree.Shape != models.ShapeFlat && week.Groups == nil {
				return fmt.Errorf("%w: app %s week %s has no %s level",
					ErrShapeMismatch, app.AppName, week.WeekStart, tree.Shape.GroupLevel())
			}
		}
	}
	return nil
}
