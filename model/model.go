package model

// Coordinate is a point on a McCabe–Thiele diagram. X is the concentration in the
// phase the isotherm takes as input, Y the concentration in the other phase (g/L).
type Coordinate struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Segment is one leg of the staircase.
type Segment struct {
	From Coordinate `json:"from" yaml:"from"`
	To   Coordinate `json:"to" yaml:"to"`
}

// Msg is the message exchanged with websocket clients.
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// Action is the six-field design vector driven by the sweep and the environment adapter.
// Stage counts are truncated to integers when an action is run.
type Action struct {
	NumStageExtract float64 `json:"num_stage_extract"`
	NumStageStrip   float64 `json:"num_stage_strip"`
	OAExtract       float64 `json:"oa_extract"`
	OAStrip         float64 `json:"oa_strip"`
	TentativeBO     float64 `json:"tentative_bo"`
	TentativeDR     float64 `json:"tentative_dr"`
}

// Vector returns the action in its fixed field order.
func (a Action) Vector() [6]float64 {
	return [6]float64{a.NumStageExtract, a.NumStageStrip, a.OAExtract, a.OAStrip, a.TentativeBO, a.TentativeDR}
}

func ActionFromVector(v [6]float64) Action {
	return Action{
		NumStageExtract: v[0],
		NumStageStrip:   v[1],
		OAExtract:       v[2],
		OAStrip:         v[3],
		TentativeBO:     v[4],
		TentativeDR:     v[5],
	}
}
