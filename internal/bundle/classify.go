package bundle

// Classification decodes the numeric object classification codes carried by
// cooperative perception logs into the viewer's coarse type plus a
// fine-grained sub type.
type Classification struct {
	Type    string
	SubType string
}

// codes 0..11 are vehicles, 12..18 persons, then animal/other/rsu.
var classTable = map[int]Classification{
	0:  {"VEHICLE", "UNKNOWN"},
	1:  {"VEHICLE", "MOPED"},
	2:  {"VEHICLE", "MOTORCYCLE"},
	3:  {"VEHICLE", "CAR"},
	4:  {"VEHICLE", "BUS"},
	5:  {"VEHICLE", "LIGHT_TRUCK"},
	6:  {"VEHICLE", "HEAVY_TRUCK"},
	7:  {"VEHICLE", "TRAILER"},
	8:  {"VEHICLE", "SPECIAL_VEHICLE"},
	9:  {"VEHICLE", "TRAM"},
	10: {"VEHICLE", "EMERGENCY_VEHICLE"},
	11: {"VEHICLE", "AGRICULTURAL"},
	12: {"PEDESTRIAN", "PERSON_UNKNOWN"},
	13: {"PEDESTRIAN", "PEDESTRIAN"},
	14: {"PEDESTRIAN", "WHEELCHAIR"},
	// cyclists get the BICYCLE top-level type so viewer filters keep working
	15: {"BICYCLE", "CYCLIST"},
	16: {"PEDESTRIAN", "STROLLER"},
	17: {"PEDESTRIAN", "SKATES"},
	18: {"PEDESTRIAN", "PERSON_GROUP"},
	19: {"ANIMAL", "ANIMAL"},
	20: {"OTHER", "OTHER_UNKNOWN"},
	21: {"RSU", "ROADSIDE_UNIT"},
}

// DecodeClass maps a classification code to (type, sub_type). Unknown or
// missing codes yield type UNKNOWN with an empty sub type.
func DecodeClass(code *int) Classification {
	if code == nil {
		return Classification{Type: "UNKNOWN"}
	}
	if c, ok := classTable[*code]; ok {
		return c
	}
	return Classification{Type: "UNKNOWN"}
}
