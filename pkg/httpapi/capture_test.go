package httpapi

import "testing"

func TestCaptureFieldsDOB(t *testing.T) {
	cases := map[string]string{
		"born 12.03.1990 in Berlin": "12.03.1990",
		"DOB: 12/03/1990":           "12/03/1990",
		"date of birth 1990-03-12":  "1990-03-12",
	}
	for msg, want := range cases {
		fields := CaptureFields(msg)
		if fields["date_of_birth"] != want {
			t.Errorf("%q: dob = %v, want %q", msg, fields["date_of_birth"], want)
		}
	}
}

func TestCaptureFieldsAddress(t *testing.T) {
	fields := CaptureFields("The customer lives at Baker Street 221b, London and provided consent")
	if fields["address"] != "Baker Street 221b, London" {
		t.Errorf("address = %v", fields["address"])
	}
	if fields["consent"] != "confirmed" {
		t.Errorf("consent = %v", fields["consent"])
	}
}

func TestCaptureFieldsDocuments(t *testing.T) {
	fields := CaptureFields("I uploaded my passport yesterday")
	if fields["documents_mentioned"] == nil {
		t.Error("expected documents_mentioned")
	}
}

func TestCaptureFieldsNothing(t *testing.T) {
	fields := CaptureFields("hello there")
	if len(fields) != 0 {
		t.Errorf("expected no fields, got %v", fields)
	}
}
