package paper

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"

	"tradesim-go/internal/exchange"
)

func TestJSONLRecorderRoundTrip(t *testing.T) {
	path := t.TempDir() + "/fills.jsonl"

	recorder, err := NewJSONLRecorder(path)
	if err != nil {
		t.Fatalf("NewJSONLRecorder error: %v", err)
	}
	fills := []exchange.Fill{
		{OrderID: "ord-1", Symbol: "BTCUSDT", Side: exchange.Buy, Qty: 2, Price: 45000},
		{OrderID: "ord-2", Symbol: "BTCUSDT", Side: exchange.Sell, Qty: 2, Price: 46000, Realized: 2000, Closing: true},
	}
	for _, f := range fills {
		recorder.Record(f)
	}
	if err := recorder.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open recorded file: %v", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for i, want := range fills {
		if !scanner.Scan() {
			t.Fatalf("expected line %d in recorder output", i)
		}
		var got exchange.Fill
		if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
			t.Fatalf("json decode line %d: %v", i, err)
		}
		if got.OrderID != want.OrderID || got.Side != want.Side || got.Closing != want.Closing {
			t.Fatalf("line %d decoded %+v, want %+v", i, got, want)
		}
	}
	if scanner.Scan() {
		t.Fatal("unexpected extra line in recorder output")
	}
}
