package gateway

import (
	"errors"
	"testing"
	"time"
)

func TestValueRawRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    Value
		want any
	}{
		{"int", IntValue(42), int64(42)},
		{"string", StringValue("hi"), "hi"},
		{"bool", BoolValue(true), true},
		{"double", DoubleValue(3.5), 3.5},
		{"null", NullValue(), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.v.Raw(); got != c.want {
				t.Errorf("Raw() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestExecuteResultSingle(t *testing.T) {
	empty := ExecuteResult{}
	if _, ok := empty.Single(); ok {
		t.Error("Single() on empty result should return false")
	}

	multi := ExecuteResult{Rows: []Row{{}, {}}}
	if _, ok := multi.Single(); ok {
		t.Error("Single() on multi-row result should return false")
	}

	one := ExecuteResult{Rows: []Row{{"id": IntValue(1)}}}
	row, ok := one.Single()
	if !ok {
		t.Fatal("Single() on one-row result should return true")
	}
	if row["id"].Int() != 1 {
		t.Errorf("row[id] = %d, want 1", row["id"].Int())
	}
}

func TestClassifyConnectionError(t *testing.T) {
	err := classify("SELECT 1", errors.New("dial tcp: connection refused"))
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("classify(%v) = %T, want *ConnectionError", err, err)
	}
}

func TestClassifyInternalError(t *testing.T) {
	err := classify("SELECT 1", errors.New("syntax error near SELECT"))
	var internalErr *InternalError
	if !errors.As(err, &internalErr) {
		t.Fatalf("classify(%v) = %T, want *InternalError", err, err)
	}
}

func TestToValueTypes(t *testing.T) {
	if v := toValue(nil); !v.IsNull() {
		t.Error("toValue(nil) should be null")
	}
	if v := toValue([]byte("abc")); v.String() != "abc" {
		t.Errorf("toValue([]byte) = %q, want abc", v.String())
	}
	if v := toValue(int64(7)); v.Int() != 7 {
		t.Errorf("toValue(int64) = %d, want 7", v.Int())
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if v := toValue(now); !v.Time().Equal(now) {
		t.Errorf("toValue(time.Time) = %v, want %v", v.Time(), now)
	}
}

func TestTimeValueRawRoundTrip(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := TimeValue(now)
	raw, ok := v.Raw().(time.Time)
	if !ok || !raw.Equal(now) {
		t.Errorf("Raw() = %v, want %v", v.Raw(), now)
	}
}
