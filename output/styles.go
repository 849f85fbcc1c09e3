package output

type Styler map[string]interface{}

// MapStyle is one rule of a base-map style in the Maps JavaScript API format.
type MapStyle struct {
	FeatureType string   `json:"featureType,omitempty"`
	ElementType string   `json:"elementType,omitempty"`
	Stylers     []Styler `json:"stylers"`
}

const (
	StyleSnazzyBlack = "snazzyBlack"
	StyleSnazzyColor = "snazzyColor"
)

var SnazzyBlack = []MapStyle{
	{FeatureType: "administrative", ElementType: "all", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "administrative", ElementType: "labels.text.fill", Stylers: []Styler{{"color": "#444444"}}},
	{FeatureType: "landscape", ElementType: "all", Stylers: []Styler{{"color": "#000000"}, {"visibility": "on"}}},
	{FeatureType: "poi", ElementType: "all", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "road", ElementType: "all", Stylers: []Styler{{"saturation": -100}, {"lightness": 45}}},
	{FeatureType: "road", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#ffffff"}}},
	{FeatureType: "road", ElementType: "geometry.stroke", Stylers: []Styler{{"color": "#eaeaea"}}},
	{FeatureType: "road", ElementType: "labels", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "road", ElementType: "labels.text.fill", Stylers: []Styler{{"color": "#dedede"}}},
	{FeatureType: "road", ElementType: "labels.icon", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "road.highway", ElementType: "all", Stylers: []Styler{{"visibility": "simplified"}}},
	{FeatureType: "road.arterial", ElementType: "labels.icon", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "transit", ElementType: "all", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "water", ElementType: "all", Stylers: []Styler{{"color": "#434343"}, {"visibility": "on"}}},
}

var SnazzyColor = []MapStyle{
	{ElementType: "labels", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "road", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#0F0919"}}},
	{FeatureType: "water", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#E4F7F7"}}},
	{ElementType: "geometry.stroke", Stylers: []Styler{{"visibility": "off"}}},
	{FeatureType: "poi.park", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#002FA7"}}},
	{FeatureType: "poi.attraction", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#E60003"}}},
	{FeatureType: "landscape", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#FBFCF4"}}},
	{FeatureType: "poi.business", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#FFED00"}}},
	{FeatureType: "poi.government", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#D41C1D"}}},
	{FeatureType: "poi.school", ElementType: "geometry.fill", Stylers: []Styler{{"color": "#BF0000"}}},
	{FeatureType: "transit.line", ElementType: "geometry.fill", Stylers: []Styler{{"saturation": -100}}},
}

// BaseMapStyles is the style set registered on the map, keyed by name.
func BaseMapStyles() map[string][]MapStyle {
	return map[string][]MapStyle{
		StyleSnazzyBlack: SnazzyBlack,
		StyleSnazzyColor: SnazzyColor,
	}
}

// Background is the fill colour of the base map under the layers.
func Background(styles []MapStyle) string {
	for _, style := range styles {
		if style.FeatureType != "landscape" {
			continue
		}
		for _, styler := range style.Stylers {
			if c, ok := styler["color"].(string); ok {
				return c
			}
		}
	}
	return "#ffffff"
}
