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
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"unicode"

	"github.com/Liberty30/fandom-example-client/social"
	"github.com/ethereum/go-ethereum/common"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"
)

var (
	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "",
		Flags:       configFlags,
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

func loadConfig(file string, cfg *social.Config) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig builds the configuration from the defaults, the config file
// and the command line flags, in that order.
func makeConfig(ctx *cli.Context) (social.Config, error) {
	cfg := social.DefaultConfig
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, fmt.Errorf("invalid config file: %v", err)
		}
	}
	if ctx.IsSet(uploadHostFlag.Name) {
		cfg.UploadHost = ctx.String(uploadHostFlag.Name)
	}
	if ctx.IsSet(endpointFlag.Name) {
		cfg.Endpoint = ctx.String(endpointFlag.Name)
	}
	if ctx.IsSet(publisherFlag.Name) {
		addr := ctx.String(publisherFlag.Name)
		if !common.IsHexAddress(addr) {
			return cfg, fmt.Errorf("invalid publisher address %q", addr)
		}
		cfg.PublisherAddress = common.HexToAddress(addr)
	}
	if ctx.IsSet(fromBlockFlag.Name) {
		cfg.FromBlock = ctx.Uint64(fromBlockFlag.Name)
	}
	if ctx.IsSet(keyFileFlag.Name) {
		cfg.KeyFile = ctx.String(keyFileFlag.Name)
	}
	if ctx.IsSet(fetchConcurrencyFlag.Name) {
		cfg.FetchConcurrency = ctx.Int(fetchConcurrencyFlag.Name)
	}
	if ctx.IsSet(fetchTimeoutFlag.Name) {
		cfg.FetchTimeout = ctx.Duration(fetchTimeoutFlag.Name)
	}
	if ctx.IsSet(cacheSizeFlag.Name) {
		cfg.ContentCacheSize = ctx.Int(cacheSizeFlag.Name)
	}
	if ctx.IsSet(retryBackoffFlag.Name) {
		cfg.RetryBackoff = ctx.Duration(retryBackoffFlag.Name)
	}
	if ctx.IsSet(httpHostFlag.Name) {
		cfg.HTTPHost = ctx.String(httpHostFlag.Name)
	}
	if ctx.IsSet(httpPortFlag.Name) {
		cfg.HTTPPort = ctx.Int(httpPortFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.HTTPCors = splitAndTrim(ctx.String(httpCorsFlag.Name))
	}
	return cfg, nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}
	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)
	return nil
}

// splitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func splitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}
