package fields

// CPMAliases is the built-in alias table for cooperative perception message
// object logs. Dataset profiles may extend it with additional spellings but
// these defaults cover the common column variants seen in the wild.
//
// Note the axis swap: xDistance_m is a northing and maps to canonical y,
// yDistance_m is an easting and maps to canonical x. Same for speeds.
func CPMAliases() AliasTable {
	return AliasTable{
		Timestamp: {"generationTime_ms", "generation_time_ms", "timestamp_ms", "time_ms", "timestamp", "time"},
		TrackID:   {"trackID", "track_id", "objectID", "object_id", "id"},
		Y:         {"xDistance_m", "x_distance_m", "north_m", "northing_m"},
		X:         {"yDistance_m", "y_distance_m", "east_m", "easting_m"},
		VY:        {"xSpeed_mps", "x_speed_mps", "v_north_mps"},
		VX:        {"ySpeed_mps", "y_speed_mps", "v_east_mps"},
		Heading:   {"yawAngle_deg", "yaw_angle_deg", "heading_deg", "heading"},
		Class:     {"classificationType", "classification_type", "classification", "object_class", "class"},
		Length:    {"objLength_m", "obj_length_m", "length_m", "length"},
		Width:     {"objWidth_m", "obj_width_m", "width_m", "width"},
		Height:    {"objHeight_m", "obj_height_m", "height_m", "height"},
	}
}

// ScenesAliases resolves columns of a pass-through dataset's scene index.
func ScenesAliases() AliasTable {
	return AliasTable{
		"table":         {"table", "split"},
		"scene_id":      {"scene_id", "sceneid", "scene"},
		"file":          {"file", "path", "filename"},
		"intersect_id":  {"intersect_id", "intersection_id", "intersection"},
		"city":          {"city"},
		"rows":          {"rows", "row_count", "n_rows"},
		"unique_ts":     {"unique_ts", "unique_timestamps", "n_frames"},
		"min_ts":        {"min_ts", "ts_min"},
		"max_ts":        {"max_ts", "ts_max"},
		"duration_s":    {"duration_s", "duration"},
		"unique_agents": {"unique_agents", "n_agents", "agents"},
	}
}
