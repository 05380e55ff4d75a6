// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package social

import (
	"time"

	"github.com/Liberty30/fandom-example-client/content"
	"github.com/Liberty30/fandom-example-client/contracts/publication"
	"github.com/Liberty30/fandom-example-client/ingest"
	"github.com/ethereum/go-ethereum/common"
)

// Config contains the configuration of a fandom client.
type Config struct {
	// UploadHost is the base URL of the host that stores content bodies and
	// batch files.
	UploadHost string

	// Endpoint is the Ethereum node RPC endpoint, preferably a websocket.
	Endpoint string

	// PublisherAddress is the address of the DSNP Publisher contract.
	PublisherAddress common.Address

	// FromBlock is the first block whose publications are ingested.
	FromBlock uint64

	// KeyFile is the hex encoded secp256k1 key used for signing
	// announcements and publication transactions.
	KeyFile string `toml:",omitempty"`

	FetchConcurrency int
	FetchTimeout     time.Duration
	ContentCacheSize int
	RetryBackoff     time.Duration

	// HTTP-RPC server settings. The server is disabled if HTTPHost is empty.
	HTTPHost string   `toml:",omitempty"`
	HTTPPort int      `toml:",omitempty"`
	HTTPCors []string `toml:",omitempty"`
}

// DefaultConfig contains reasonable default settings.
var DefaultConfig = Config{
	UploadHost:       "http://localhost:3000",
	Endpoint:         "ws://localhost:8546",
	FetchConcurrency: ingest.DefaultConcurrency,
	FetchTimeout:     content.DefaultFetchTimeout,
	ContentCacheSize: content.DefaultCacheSize,
	RetryBackoff:     publication.DefaultRetryBackoff,
	HTTPPort:         8600,
}
