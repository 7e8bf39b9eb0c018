package domain

import "testing"

func TestNextDelay(t *testing.T) {
	tests := []struct {
		name    string
		rate    int
		target  int
		current int
		min     int
		max     int
		want    int
	}{
		{"above target increases", 25, 20, 5, 0, 10, 6},
		{"below half target decreases", 8, 20, 5, 0, 10, 4},
		{"inside dead-band holds", 15, 20, 5, 0, 10, 5},
		{"at target holds", 20, 20, 5, 0, 10, 5},
		{"at half target holds", 10, 20, 5, 0, 10, 5},
		{"clamped at max", 100, 20, 10, 0, 10, 10},
		{"clamped at min", 0, 20, 0, 0, 10, 0},
		{"above max pulled down to max", 100, 20, 15, 0, 10, 10},
		{"one step only far above target", 1000, 20, 2, 0, 10, 3},
		// 21/2 == 10, so a rate of 10 holds rather than decreasing
		{"odd target rounds dead-band down", 10, 21, 5, 0, 10, 5},
		{"odd target just below half", 9, 21, 5, 0, 10, 4},
		{"zero target increases on any traffic", 1, 0, 0, 0, 10, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDelay(tt.rate, tt.target, tt.current, tt.min, tt.max)
			if got != tt.want {
				t.Errorf("NextDelay(%d, %d, %d, %d, %d) = %d, want %d",
					tt.rate, tt.target, tt.current, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestStepDelay(t *testing.T) {
	if got := StepDelay(DirectionIncrease, 5, 0, 10); got != 6 {
		t.Errorf("Expected 6, got %d", got)
	}
	if got := StepDelay(DirectionDecrease, 5, 0, 10); got != 4 {
		t.Errorf("Expected 4, got %d", got)
	}
	if got := StepDelay(DirectionIncrease, 10, 0, 10); got != 10 {
		t.Errorf("Expected increase to clamp at 10, got %d", got)
	}
	if got := StepDelay(DirectionDecrease, 0, 0, 10); got != 0 {
		t.Errorf("Expected decrease to clamp at 0, got %d", got)
	}
	if got := StepDelay(DirectionDecrease, 20, 0, 10); got != 10 {
		t.Errorf("Expected out of range delay to clamp to 10, got %d", got)
	}
}

func TestCalibrate(t *testing.T) {
	res := Calibrate(300)
	if res.Rate != 60.0 {
		t.Errorf("Expected rate 60.0, got %v", res.Rate)
	}
	if res.Target != 60 {
		t.Errorf("Expected target 60, got %d", res.Target)
	}
	if res.MinDelay != 2 || res.MaxDelay != 10 {
		t.Errorf("Expected bounds [2,10], got [%d,%d]", res.MinDelay, res.MaxDelay)
	}

	mid := Calibrate(299)
	if mid.MinDelay != 0 || mid.MaxDelay != 10 {
		t.Errorf("Expected bounds [0,10], got [%d,%d]", mid.MinDelay, mid.MaxDelay)
	}
	if mid.Target != 59 {
		t.Errorf("Expected target floored to 59, got %d", mid.Target)
	}

	// 20/min is not above 20, so the quiet band applies
	edge := Calibrate(100)
	if edge.MinDelay != 0 || edge.MaxDelay != 5 {
		t.Errorf("Expected bounds [0,5], got [%d,%d]", edge.MinDelay, edge.MaxDelay)
	}

	quiet := Calibrate(12)
	if quiet.Rate != 2.4 || quiet.Target != 2 {
		t.Errorf("Expected rate 2.4 target 2, got %v %d", quiet.Rate, quiet.Target)
	}
	if quiet.MinDelay != 0 || quiet.MaxDelay != 5 {
		t.Errorf("Expected bounds [0,5], got [%d,%d]", quiet.MinDelay, quiet.MaxDelay)
	}
}

func TestSurveyResult_Apply(t *testing.T) {
	p := DefaultGuildPolicy("g1")
	res := Calibrate(150)
	res.ChannelID = "c1"
	res.Apply(p)

	if p.Target != 30 || p.MinDelay != 0 || p.MaxDelay != 10 {
		t.Errorf("Unexpected policy after apply: %+v", p)
	}
	if !p.Monitors("c1") {
		t.Error("Expected channel to be monitored after apply")
	}

	res.Apply(p)
	if len(p.Channels) != 1 {
		t.Errorf("Expected channel added once, got %v", p.Channels)
	}
}
