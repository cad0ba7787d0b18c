package types

import "testing"

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2021-01-01")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year != 2021 || d.Month != 1 || d.Day != 1 {
		t.Errorf("parsed %+v", d)
	}
	if got := d.String(); got != "2021-01-01" {
		t.Errorf("String() = %q", got)
	}

	for _, bad := range []string{"", "2021-13-01", "2021-1-1", "01/01/2021"} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) should fail", bad)
		}
	}
}

func TestWindowContains(t *testing.T) {
	from := MustDate("2018-05-25")
	to := MustDate("2021-01-01")

	tests := []struct {
		name   string
		window ValidityWindow
		date   string
		want   bool
	}{
		{"inside", ValidityWindow{&from, &to}, "2019-06-01", true},
		{"start inclusive", ValidityWindow{&from, &to}, "2018-05-25", true},
		{"end exclusive", ValidityWindow{&from, &to}, "2021-01-01", false},
		{"before", ValidityWindow{&from, &to}, "2018-05-24", false},
		{"open end", ValidityWindow{&from, nil}, "2099-12-31", true},
		{"open start", ValidityWindow{nil, &to}, "1900-01-01", true},
		{"fully open", ValidityWindow{nil, nil}, "2020-01-01", true},
	}
	for _, tt := range tests {
		if got := tt.window.Contains(MustDate(tt.date)); got != tt.want {
			t.Errorf("%s: Contains(%s) = %v, want %v", tt.name, tt.date, got, tt.want)
		}
	}
}

func TestWindowOverlaps(t *testing.T) {
	d := func(s string) *Date {
		v := MustDate(s)
		return &v
	}

	tests := []struct {
		name string
		a, b ValidityWindow
		want bool
	}{
		{"adjacent half-open", ValidityWindow{d("2018-01-01"), d("2020-01-01")},
			ValidityWindow{d("2020-01-01"), nil}, false},
		{"overlapping", ValidityWindow{d("2018-01-01"), d("2020-01-01")},
			ValidityWindow{d("2019-06-01"), nil}, true},
		{"disjoint", ValidityWindow{d("2018-01-01"), d("2019-01-01")},
			ValidityWindow{d("2020-01-01"), d("2021-01-01")}, false},
		{"both open", ValidityWindow{d("2018-01-01"), nil},
			ValidityWindow{d("2020-01-01"), nil}, true},
		{"open start vs later", ValidityWindow{nil, d("2019-01-01")},
			ValidityWindow{d("2019-01-01"), nil}, false},
	}
	for _, tt := range tests {
		if got := tt.a.Overlaps(tt.b); got != tt.want {
			t.Errorf("%s: Overlaps = %v, want %v", tt.name, got, tt.want)
		}
		if got := tt.b.Overlaps(tt.a); got != tt.want {
			t.Errorf("%s (reversed): Overlaps = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMakeAndSplitRef(t *testing.T) {
	if got := MakeRef("3", "5a"); got != "3:5a" {
		t.Errorf("MakeRef = %q", got)
	}
	if got := MakeRef("", "12"); got != "12" {
		t.Errorf("MakeRef = %q", got)
	}

	chapter, section := SplitRef("3:5a")
	if chapter != "3" || section != "5a" {
		t.Errorf("SplitRef(3:5a) = %q, %q", chapter, section)
	}
	chapter, section = SplitRef("12")
	if chapter != "" || section != "12" {
		t.Errorf("SplitRef(12) = %q, %q", chapter, section)
	}
}

func TestDocumentInForceAt(t *testing.T) {
	repeal := MustDate("2018-05-25")
	doc := Document{DocumentID: "1998:204", RepealDate: &repeal}

	if doc.InForceAt(MustDate("2018-05-25")) {
		t.Error("repeal date itself should be out of force")
	}
	if !doc.InForceAt(MustDate("2018-05-24")) {
		t.Error("day before repeal should be in force")
	}

	unrepealed := Document{DocumentID: "2010:110"}
	if !unrepealed.InForceAt(MustDate("2099-01-01")) {
		t.Error("unrepealed statute should always be in force")
	}
}
