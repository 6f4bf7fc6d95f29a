package schema

import (
	"strings"
	"testing"
	"time"
)

func ckanRecord() map[string]any {
	return map[string]any{
		"id":                "d6c3a8b4-55a2-4d1d-9f1e-5b2f1c1f8e11",
		"name":              "bus-stops",
		"title":             "Bus stops",
		"notes":             "  Stops &amp; stations ",
		"license_id":        nil,
		"metadata_created":  "2019-07-01T10:20:30.123456",
		"metadata_modified": "2020-01-02T03:04:05",
		"num_resources":     float64(1),
		"tags": []any{
			map[string]any{"name": "Public Transport"},
		},
		"organization": map[string]any{
			"id":   "org-1",
			"name": "Org One",
		},
		"resources": []any{
			map[string]any{
				"id":            "0c2f4d0e-4f8a-4b0a-9d4c-4d2f0a9c9a01",
				"position":      float64(0),
				"url":           "https://example.org/stops.csv",
				"created":       "2019-07-01T10:20:30",
				"format":        "CSV",
				"size":          "1375",
				"hash":          "d41d8cd98f00b204e9800998ecf8427e",
				"resource_type": "",
			},
		},
		"extras": []any{
			map[string]any{"key": "frequency", "value": "daily"},
			map[string]any{"key": "empty", "value": nil},
		},
	}
}

func TestCKANDecode(t *testing.T) {
	record, err := CKAN().Decode(ckanRecord())
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if record.Notes == nil || *record.Notes != "Stops & stations" {
		t.Errorf("Notes = %v, want normalized text", record.Notes)
	}
	if record.LicenseID != NotSpecifiedLicense {
		t.Errorf("LicenseID = %q, want %q", record.LicenseID, NotSpecifiedLicense)
	}
	if got := record.Tags[0].Name; got != "public-transport" {
		t.Errorf("tag name = %q, want public-transport", got)
	}
	if record.Organization == nil || record.Organization.Name != "org-one" {
		t.Errorf("Organization = %+v, want slugified name", record.Organization)
	}
	if want := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC); !record.MetadataModified.Equal(want) {
		t.Errorf("MetadataModified = %v, want %v", record.MetadataModified, want)
	}
	if _, ok := record.Unknown["num_resources"]; !ok {
		t.Errorf("unknown key num_resources was not preserved")
	}
	if record.Private {
		t.Errorf("Private = true, want default false")
	}

	res := record.Resources[0]
	if res.Format != "csv" {
		t.Errorf("Format = %q, want csv", res.Format)
	}
	if res.ResourceType != ResourceFile {
		t.Errorf("ResourceType = %q, want file", res.ResourceType)
	}
	if res.Size == nil || *res.Size != 1375 {
		t.Errorf("Size = %v, want 1375", res.Size)
	}
	if res.Hash == nil || res.Hash.Type != "md5" {
		t.Errorf("Hash = %+v, want md5 checksum", res.Hash)
	}
	if res.Position == nil || *res.Position != 0 {
		t.Errorf("Position = %v, want 0", res.Position)
	}
	if res.Name != "" || res.Description != "" {
		t.Errorf("Name/Description = %q/%q, want empty defaults", res.Name, res.Description)
	}

	if len(record.Extras) != 2 || record.Extras[1].Value != nil {
		t.Errorf("Extras = %+v, want null value preserved", record.Extras)
	}
}

func TestCKANNullNotesStaysNull(t *testing.T) {
	raw := ckanRecord()
	raw["notes"] = nil
	record, err := CKAN().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Notes != nil {
		t.Errorf("Notes = %q, want nil", *record.Notes)
	}
}

func TestCKANNullBooleans(t *testing.T) {
	raw := ckanRecord()
	raw["private"] = nil
	raw["organization"].(map[string]any)["is_organization"] = nil
	record, err := CKAN().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Private {
		t.Errorf("Private = true, want false for null")
	}
	if record.Organization == nil || record.Organization.IsOrganization {
		t.Errorf("Organization = %+v, want is_organization false", record.Organization)
	}

	raw["private"] = "yes"
	record, err = CKAN().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !record.Private {
		t.Errorf("Private = false, want true")
	}
}

func TestCKANValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		path   string
	}{
		{
			name:   "missing title",
			mutate: func(r map[string]any) { delete(r, "title") },
			path:   "title",
		},
		{
			name:   "bad email",
			mutate: func(r map[string]any) { r["author_email"] = "not an email" },
			path:   "author_email",
		},
		{
			name: "bad resource url",
			mutate: func(r map[string]any) {
				r["resources"].([]any)[0].(map[string]any)["url"] = "not a url"
			},
			path: "resources.0.url",
		},
		{
			name: "unknown resource type",
			mutate: func(r map[string]any) {
				r["resources"].([]any)[0].(map[string]any)["resource_type"] = "metadata"
			},
			path: "resources.0.resource_type",
		},
		{
			name:   "bad date",
			mutate: func(r map[string]any) { r["metadata_created"] = "yesterday" },
			path:   "metadata_created",
		},
		{
			name:   "wrong dataset type",
			mutate: func(r map[string]any) { r["type"] = "harvest" },
			path:   "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := ckanRecord()
			tt.mutate(raw)
			_, err := CKAN().Decode(raw)
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("Decode() error = %v, want *ValidationError", err)
			}
			found := false
			for _, inv := range verr.Errors {
				if inv.PathString() == tt.path {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %s", verr, tt.path)
			}
		})
	}
}

func TestBlankEmailIsAbsent(t *testing.T) {
	raw := ckanRecord()
	raw["maintainer_email"] = "  "
	record, err := CKAN().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.MaintainerEmail != nil {
		t.Errorf("MaintainerEmail = %q, want nil", *record.MaintainerEmail)
	}
}

func TestValidationCollectsAllErrors(t *testing.T) {
	raw := ckanRecord()
	delete(raw, "title")
	delete(raw, "name")
	_, err := CKAN().Validate(raw)
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("Validate() error = %v, want *ValidationError", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(verr.Errors), verr)
	}
	if !strings.Contains(verr.Error(), "2 errors") {
		t.Errorf("Error() = %q", verr.Error())
	}
}

func TestDKANDecode(t *testing.T) {
	raw := []any{map[string]any{
		"id":                "9a1f",
		"name":              "air-quality",
		"title":             "Air quality",
		"type":              "Dataset",
		"metadata_created":  "2019-09-30T14:51:00",
		"metadata_modified": "2019-09-30T14:51:00",
		"groups":            []any{nil, map[string]any{"id": "g1", "name": "Environment"}},
		"resources": []any{
			map[string]any{
				"id":            "3c1c9a0e-1b6a-4d1c-8c3e-7a3f7d7b2e10",
				"url":           "https://example.org/air.json",
				"created":       "2019-09-30T14:51:00",
				"last_modified": "Date changed  Mon, 09/30/2019 - 14:51",
				"size":          "2.5 MB",
			},
		},
	}}

	record, err := DKAN().Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(record.Tags) != 0 {
		t.Errorf("Tags = %v, want empty default", record.Tags)
	}
	if record.Groups[0] != nil || record.Groups[1].Name != "environment" {
		t.Errorf("Groups = %+v", record.Groups)
	}
	res := record.Resources[0]
	if res.Size == nil || *res.Size != 2500000 {
		t.Errorf("Size = %v, want 2500000", res.Size)
	}
	if res.Position != nil {
		t.Errorf("Position = %v, want nil", *res.Position)
	}
	want := time.Date(2019, 9, 30, 14, 51, 0, 0, time.UTC)
	if res.LastModified == nil || !res.LastModified.Equal(want) {
		t.Errorf("LastModified = %v, want %v", res.LastModified, want)
	}
}

func TestDKANEmptyResultList(t *testing.T) {
	if _, err := DKAN().Decode([]any{}); err == nil {
		t.Errorf("Decode() of empty list succeeded, want error")
	}
}

func TestForBackend(t *testing.T) {
	for _, name := range []string{"ckan", "dkan"} {
		s, err := ForBackend(name)
		if err != nil || s.Name() != name {
			t.Errorf("ForBackend(%q) = %v, %v", name, s, err)
		}
	}
	if _, err := ForBackend("socrata"); err == nil {
		t.Errorf("ForBackend(socrata) succeeded, want error")
	}
}

func TestFieldsWithWithout(t *testing.T) {
	base := Fields{Required("a", String()), Optional("b", String())}
	got := base.Without("a").With(Required("b", Int()), Optional("c", String()))
	if len(got) != 2 || got[0].Key != "b" || !got[0].Required || got[1].Key != "c" {
		t.Errorf("With/Without = %+v", got)
	}
	if len(base) != 2 || base[1].Required {
		t.Errorf("base fields mutated: %+v", base)
	}
}
