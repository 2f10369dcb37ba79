package progress

import "testing"

func collect(t *Tracker) *[]Report {
	var reports []Report
	t.sink = func(r Report) { reports = append(reports, r) }
	return &reports
}

func TestThresholdsAreIncreasingMultiplesOfStep(t *testing.T) {
	cases := []struct {
		name  string
		total int64
		adds  []int64
	}{
		{"single pulses", 1000, repeat(1, 1000)},
		{"uneven chunks", 12345, []int64{1, 700, 3, 5000, 1, 1, 6000, 639}},
		{"one big delay", 500, []int64{500}},
		{"overshoot", 200, repeat(7, 40)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tr := New(nil, nil)
			reports := collect(tr)
			tr.Reset(tc.total)
			step := tc.total / 100

			var sum int64
			for _, n := range tc.adds {
				sum += n
				tr.Add(n)
			}
			if tr.Count() != sum {
				t.Fatalf("Count() = %d, want %d", tr.Count(), sum)
			}
			if len(*reports) == 0 {
				t.Fatalf("no reports emitted")
			}
			var last int64
			for i, r := range *reports {
				if r.Threshold <= last {
					t.Fatalf("report %d threshold %d not above %d", i, r.Threshold, last)
				}
				if r.Threshold%step != 0 {
					t.Fatalf("report %d threshold %d not a multiple of %d", i, r.Threshold, step)
				}
				if r.Count < r.Threshold {
					t.Fatalf("report %d emitted before threshold: count %d < %d", i, r.Count, r.Threshold)
				}
				last = r.Threshold
			}
		})
	}
}

func TestSinglePulsesReportEveryStep(t *testing.T) {
	tr := New(nil, nil)
	reports := collect(tr)
	tr.Reset(1000)
	for i := 0; i < 1000; i++ {
		tr.Add(1)
	}
	if len(*reports) != 100 {
		t.Fatalf("reports = %d, want 100", len(*reports))
	}
	for k, r := range *reports {
		if r.Threshold != int64(k+1)*10 {
			t.Fatalf("report %d threshold = %d, want %d", k, r.Threshold, (k+1)*10)
		}
	}
	if got := (*reports)[99].Percent(); got != 100 {
		t.Fatalf("final percent = %d", got)
	}
}

func TestZeroStepDisablesReporting(t *testing.T) {
	for _, total := range []int64{0, 1, 99} {
		tr := New(nil, nil)
		reports := collect(tr)
		tr.Reset(total)
		for i := 0; i < 500; i++ {
			tr.Add(1)
		}
		if len(*reports) != 0 {
			t.Fatalf("total %d: got %d reports, want none", total, len(*reports))
		}
	}
}

func TestResetClearsCount(t *testing.T) {
	tr := New(nil, nil)
	reports := collect(tr)
	tr.Reset(100)
	tr.Add(50)
	tr.Reset(100)
	if tr.Count() != 0 {
		t.Fatalf("Count() after Reset = %d", tr.Count())
	}
	tr.Add(1)
	// One report for the 50-cycle jump, one for the first cycle after Reset.
	if n := len(*reports); n != 2 {
		t.Fatalf("reports = %d, want 2", n)
	}
	if r := (*reports)[1]; r.Count != 1 || r.Threshold != 1 {
		t.Fatalf("report after Reset = %+v", r)
	}
}

func repeat(n int64, times int) []int64 {
	out := make([]int64, times)
	for i := range out {
		out[i] = n
	}
	return out
}
