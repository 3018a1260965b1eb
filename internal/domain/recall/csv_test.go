package recall

import (
	"errors"
	"strings"
	"testing"
)

func TestParsePatientsCSV_AllValid(t *testing.T) {
	content := "first_name,last_name,email,number,dob,notes\n" +
		"Ada,Lovelace,ada@example.com,+441111,1815-12-10,asthma review\n" +
		"Alan,Turing,alan@example.com,+442222,1912-06-23,\n"

	inputs, rowErrs, err := ParsePatientsCSV(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rowErrs) != 0 {
		t.Errorf("expected no row errors, got %v", rowErrs)
	}
	if len(inputs) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(inputs))
	}
	if inputs[0].Notes == nil || *inputs[0].Notes != "asthma review" {
		t.Errorf("expected notes on first row, got %v", inputs[0].Notes)
	}
	if inputs[1].Notes != nil {
		t.Errorf("expected nil notes for empty column, got %q", *inputs[1].Notes)
	}
}

func TestParsePatientsCSV_MissingFieldReportsRowPlusOne(t *testing.T) {
	content := "first_name,last_name,email,number,dob\n" +
		"Ada,Lovelace,ada@example.com,+441111,1815-12-10\n" +
		"Alan,,alan@example.com,,1912-06-23\n" +
		"Grace,Hopper,grace@example.com,+443333,1906-12-09\n"

	inputs, rowErrs, err := ParsePatientsCSV(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inputs) != 2 {
		t.Errorf("expected the 2 valid rows to survive, got %d", len(inputs))
	}
	if len(rowErrs) != 1 {
		t.Fatalf("expected 1 row error, got %v", rowErrs)
	}
	want := "Row 3: Missing required fields - last_name, number"
	if rowErrs[0] != want {
		t.Errorf("expected %q, got %q", want, rowErrs[0])
	}
}

func TestParsePatientsCSV_ShortRow(t *testing.T) {
	content := "first_name,last_name,email,number,dob\nAda,Lovelace\n"

	_, rowErrs, err := ParsePatientsCSV(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rowErrs) != 1 || !strings.Contains(rowErrs[0], "email, number, dob") {
		t.Errorf("expected missing trailing fields, got %v", rowErrs)
	}
}

func TestParsePatientsCSV_HeaderMissingColumns(t *testing.T) {
	_, _, err := ParsePatientsCSV("first_name,last_name,email\nAda,Lovelace,ada@example.com\n")
	if !errors.Is(err, ErrInvalidCSV) {
		t.Fatalf("expected ErrInvalidCSV, got %v", err)
	}
	if !strings.Contains(err.Error(), "number, dob") {
		t.Errorf("expected missing columns in error, got %v", err)
	}
}

func TestParsePatientsCSV_Empty(t *testing.T) {
	_, _, err := ParsePatientsCSV("")
	if !errors.Is(err, ErrInvalidCSV) {
		t.Errorf("expected ErrInvalidCSV for empty content, got %v", err)
	}
}

func TestParsePatientsCSV_ReorderedColumnsAndBOM(t *testing.T) {
	content := "\ufeffdob,number,email,last_name,first_name\n1815-12-10,+441111,ada@example.com,Lovelace,Ada\n"

	inputs, rowErrs, err := ParsePatientsCSV(content)
	if err != nil || len(rowErrs) != 0 {
		t.Fatalf("unexpected failure: %v %v", err, rowErrs)
	}
	if len(inputs) != 1 || inputs[0].FirstName != "Ada" || inputs[0].DOB != "1815-12-10" {
		t.Errorf("unexpected parse %+v", inputs)
	}
}
