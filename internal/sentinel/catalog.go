package sentinel

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/forest-guardian/ndsi-salinity-cli/internal/utils"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const catalogPageLimit = 100

// Query selects catalog scenes. End is exclusive.
type Query struct {
	Collection    string
	Bounds        orb.Bound
	Start         time.Time
	End           time.Time
	MaxCloudCover float64
}

type Scene struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Datetime   time.Time `json:"datetime"`
	CloudCover float64   `json:"cloud_cover"`
	Bands      []string  `json:"bands"`
}

// Day is the acquisition day, used to name cached rasters.
func (s Scene) Day() string {
	return s.Datetime.UTC().Format("2006-01-02")
}

func (s Scene) HasBands(names ...string) bool {
	for _, name := range names {
		found := false
		for _, band := range s.Bands {
			if band == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type stacSearchRequest struct {
	Collections []string  `json:"collections"`
	BBox        []float64 `json:"bbox"`
	Datetime    string    `json:"datetime"`
	Filter      string    `json:"filter,omitempty"`
	FilterLang  string    `json:"filter-lang,omitempty"`
	Limit       int       `json:"limit"`
	Next        *int      `json:"next,omitempty"`
}

type stacFeature struct {
	ID         string `json:"id"`
	Collection string `json:"collection"`
	Properties struct {
		Datetime   time.Time `json:"datetime"`
		CloudCover *float64  `json:"eo:cloud_cover"`
		Bands      []struct {
			Name string `json:"name"`
		} `json:"eo:bands"`
	} `json:"properties"`
	Assets map[string]json.RawMessage `json:"assets"`
}

type stacSearchResponse struct {
	Features []stacFeature `json:"features"`
	Context  struct {
		Next     *int `json:"next"`
		Limit    int  `json:"limit"`
		Returned int  `json:"returned"`
	} `json:"context"`
}

// Search lists the scenes matching the query, oldest first. Results are
// cached on disk per query.
func (c *Client) Search(ctx context.Context, query Query) ([]Scene, error) {
	if !query.End.After(query.Start) {
		return nil, errors.Errorf("empty date range %s..%s", query.Start.Format(time.DateOnly), query.End.Format(time.DateOnly))
	}

	var key string
	if c.catalog != nil {
		key = c.catalog.GenerateKey(query.Collection, query.Bounds, query.Start.Unix(), query.End.Unix(), query.MaxCloudCover)
		if scenes, ok := c.catalog.Get(key); ok {
			c.log.WithField("scenes", len(scenes)).Debug("catalog cache hit")
			return scenes, nil
		}
	}

	request := stacSearchRequest{
		Collections: []string{query.Collection},
		BBox:        []float64{query.Bounds.Min[0], query.Bounds.Min[1], query.Bounds.Max[0], query.Bounds.Max[1]},
		Datetime:    fmt.Sprintf("%s/%s", query.Start.UTC().Format(time.RFC3339), query.End.Add(-time.Second).UTC().Format(time.RFC3339)),
		Limit:       catalogPageLimit,
	}
	if query.MaxCloudCover > 0 {
		request.Filter = fmt.Sprintf("eo:cloud_cover < %v", query.MaxCloudCover)
		request.FilterLang = "cql2-text"
	}

	var scenes []Scene
	for {
		body, err := c.post(ctx, catalogSearchPath, "application/geo+json", request)
		if err != nil {
			return nil, errors.Wrap(err, "catalog search failed")
		}

		var response stacSearchResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, errors.Wrap(err, "failed to decode catalog response")
		}
		for _, feature := range response.Features {
			scene := feature.scene(query.Collection)
			if query.MaxCloudCover > 0 && scene.CloudCover >= query.MaxCloudCover {
				continue
			}
			if scene.Datetime.Before(query.Start) || !scene.Datetime.Before(query.End) {
				continue
			}
			scenes = append(scenes, scene)
		}

		if response.Context.Next == nil || len(response.Features) == 0 {
			break
		}
		request.Next = response.Context.Next
	}

	scenes = utils.SortByDate(scenes, func(s Scene) time.Time { return s.Datetime }, true)
	c.log.WithFields(logrus.Fields{
		"collection": query.Collection,
		"from":       query.Start.Format(time.DateOnly),
		"to":         query.End.Format(time.DateOnly),
		"scenes":     len(scenes),
	}).Debug("catalog search")

	if c.catalog != nil {
		if err := c.catalog.Set(key, scenes); err != nil {
			c.log.Warnf("failed to cache catalog search: %v", err)
		}
	}
	return scenes, nil
}

func (f stacFeature) scene(collection string) Scene {
	scene := Scene{
		ID:         f.ID,
		Collection: f.Collection,
		Datetime:   f.Properties.Datetime.UTC(),
	}
	if scene.Collection == "" {
		scene.Collection = collection
	}
	if f.Properties.CloudCover != nil {
		scene.CloudCover = *f.Properties.CloudCover
	}

	for _, band := range f.Properties.Bands {
		scene.Bands = append(scene.Bands, NormalizeBand(band.Name))
	}
	if len(scene.Bands) == 0 {
		for name := range f.Assets {
			if strings.HasPrefix(name, "B") {
				scene.Bands = append(scene.Bands, NormalizeBand(name))
			}
		}
		sort.Strings(scene.Bands)
	}
	if len(scene.Bands) == 0 {
		scene.Bands = DefaultBands(scene.Collection)
	}
	return scene
}

// NormalizeBand maps Sentinel Hub band names to the short form: B04 -> B4.
// B8A and non-numbered names are returned unchanged.
func NormalizeBand(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) == 3 && name[0] == 'B' && name[1] == '0' && name[2] >= '0' && name[2] <= '9' {
		return "B" + name[2:]
	}
	return name
}

func DefaultBands(collection string) []string {
	bands := []string{"B1", "B2", "B3", "B4", "B5", "B6", "B7", "B8", "B8A", "B9", "B10", "B11", "B12"}
	if strings.EqualFold(collection, "sentinel-2-l2a") {
		// L2A products drop the cirrus band.
		return append(bands[:10:10], "B11", "B12")
	}
	return bands
}

// DistinctDays keeps the first scene of every acquisition day. Rasters are
// requested per day, so later tiles of the same day add nothing.
func DistinctDays(scenes []Scene) []Scene {
	seen := map[string]bool{}
	var out []Scene
	for _, scene := range scenes {
		if seen[scene.Day()] {
			continue
		}
		seen[scene.Day()] = true
		out = append(out, scene)
	}
	return out
}
