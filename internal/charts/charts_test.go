package charts

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"finledger/internal/core"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func TestHistoryChart(t *testing.T) {
	var points []core.HistoryPoint
	for i, p := range core.Periods(core.Period{Year: 2025, Month: time.March}, 6) {
		points = append(points, core.HistoryPoint{
			MonthLabel: p.Label(),
			PeriodKey:  p,
			Spending:   core.Cents(int64(i) * 10000),
			Budget:     core.Cents(40000),
		})
	}

	img, err := HistoryChart(points)
	if err != nil {
		t.Fatalf("HistoryChart: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatalf("expected PNG output")
	}
}

func TestHistoryChartAllZero(t *testing.T) {
	points := []core.HistoryPoint{
		{MonthLabel: "Jan", PeriodKey: core.Period{Year: 2025, Month: time.January}},
		{MonthLabel: "Feb", PeriodKey: core.Period{Year: 2025, Month: time.February}},
	}
	if _, err := HistoryChart(points); err != nil {
		t.Fatalf("zero series should still render: %v", err)
	}
}

func TestCategoryPie(t *testing.T) {
	img, err := CategoryPie([]core.CategoryTotal{
		{CategoryID: "a", Name: "Food", Total: core.Cents(15000), Color: "#ef4444"},
		{Name: core.UncategorizedName, Total: core.Cents(5000), Color: core.DefaultColor},
		{CategoryID: "b", Name: "Broken", Total: core.Cents(2000), Color: "not-a-color"},
	})
	if err != nil {
		t.Fatalf("CategoryPie: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Fatalf("expected PNG output")
	}
}

func TestNoData(t *testing.T) {
	if _, err := HistoryChart(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("HistoryChart(nil) = %v, want ErrNoData", err)
	}
	if _, err := CategoryPie(nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("CategoryPie(nil) = %v, want ErrNoData", err)
	}
}
