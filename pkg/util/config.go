// Copyright 2024-2025 The ColAgg Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package util

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

type BenchOptions struct {
	Rows       int     `toml:"rows"`
	Groups     int     `toml:"groups"`
	Partitions int     `toml:"partitions"`
	Aggr       string  `toml:"aggr"`
	Seed       int64   `toml:"seed"`
	Skew       float64 `toml:"skew"`
	Unscaled   bool    `toml:"unscaled"`
}

type ScanOptions struct {
	Path  string `toml:"path"`
	Table string `toml:"table"`
}

type DebugOptions struct {
	LogLevel          string `toml:"logLevel"`
	PrintPlan         bool   `toml:"printPlan"`
	PrintResult       bool   `toml:"printResult"`
	MaxOutputRowCount int    `toml:"maxOutputRowCount"`
	OwnerChecks       bool   `toml:"ownerChecks"`
	CheckScan         bool   `toml:"checkScan"`
	ShowRaw           bool   `toml:"showRaw"`
	ResultFile        string `toml:"resultFile"`
}

type Config struct {
	Bench BenchOptions `toml:"bench"`
	Scan  ScanOptions  `toml:"scan"`
	Debug DebugOptions `toml:"debug"`
}

// TableDefColumn describes one column of an external table.
type TableDefColumn struct {
	Name  string `toml:"name"`
	Typ   string `toml:"type"`
	Width int    `toml:"width"`
	Scale int    `toml:"scale"`
	Key   bool   `toml:"key"`
}

// TableDef is the schema descriptor loaded from a toml file next to the
// data it describes.
type TableDef struct {
	Name    string           `toml:"name"`
	Columns []TableDefColumn `toml:"columns"`
}

func LoadTableDef(path string) (*TableDef, error) {
	def := &TableDef{}
	_, err := toml.DecodeFile(path, def)
	if err != nil {
		return nil, fmt.Errorf("load table def %s: %w", path, err)
	}
	if len(def.Columns) == 0 {
		return nil, fmt.Errorf("table def %s has no columns", path)
	}
	return def, nil
}
