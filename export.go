// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwunit

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// Version of the JSON export format.
const exportVersion = "1.0"

type exportData struct {
	Version string       `json:"export_format_version"`
	Files   []exportFile `json:"files"`
	Tests   []exportTest `json:"tests"`
}

type exportFile struct {
	FileName    string `json:"file_name"`
	LibraryName string `json:"library_name"`
	Kind        string `json:"kind"`
}

type exportTest struct {
	Name     string            `json:"name"`
	Location exportLocation    `json:"location"`
	Generics map[string]string `json:"generics,omitempty"`
}

type exportLocation struct {
	FileName string `json:"file_name"`
}

// exportJSON writes the project files and the selected test cases as JSON.
func exportJSON(w io.Writer, libs []*Library, cases []*testCase) error {
	d := exportData{Version: exportVersion, Files: []exportFile{}, Tests: []exportTest{}}
	for _, l := range libs {
		for _, f := range l.files {
			d.Files = append(d.Files, exportFile{FileName: f.path, LibraryName: l.name, Kind: f.kind.String()})
		}
	}
	for _, tc := range cases {
		t := exportTest{Name: tc.name, Location: exportLocation{FileName: tc.bench.file.path}}
		if tc.config != nil && len(tc.config.Generics) > 0 {
			t.Generics = make(map[string]string, len(tc.config.Generics))
			for _, n := range tc.config.GenericNames() {
				v, err := json.Marshal(tc.config.Generics[n])
				if err != nil {
					return errors.Wrapf(err, "test %s: generic %s", tc.name, n)
				}
				t.Generics[n] = string(v)
			}
		}
		d.Tests = append(d.Tests, t)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(d), "failed to export JSON")
}
