// Copyright 2024 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Liberty30/fandom-example-client/social"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))
	return file
}

func TestLoadConfig(t *testing.T) {
	file := writeConfig(t, `
UploadHost = "https://uploads.example"
PublisherAddress = "0x5fbdb2315678afecb367f032d93f642f64180aa3"
FromBlock = 42
FetchTimeout = 5000000000
HTTPCors = ["http://localhost:8080"]
`)
	cfg := social.DefaultConfig
	require.NoError(t, loadConfig(file, &cfg))

	assert.Equal(t, "https://uploads.example", cfg.UploadHost)
	assert.Equal(t, common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3"), cfg.PublisherAddress)
	assert.Equal(t, uint64(42), cfg.FromBlock)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.HTTPCors)
	assert.Equal(t, social.DefaultConfig.Endpoint, cfg.Endpoint)
}

func TestLoadConfigUnknownField(t *testing.T) {
	file := writeConfig(t, `UploadHots = "https://uploads.example"`)
	cfg := social.DefaultConfig
	err := loadConfig(file, &cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UploadHots")
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := social.DefaultConfig
	cfg.PublisherAddress = common.HexToAddress("0x01")
	out, err := tomlSettings.Marshal(&cfg)
	require.NoError(t, err)

	var loaded social.Config
	require.NoError(t, loadConfig(writeConfig(t, string(out)), &loaded))
	assert.Equal(t, cfg, loaded)
}

func TestSplitAndTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitAndTrim(" a, ,b "))
	assert.Nil(t, splitAndTrim(""))
}
