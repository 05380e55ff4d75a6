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

// fandom is a command line client of a DSNP social feed: it keeps a local
// feed in sync with the publication ledger and publishes posts and replies.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/Liberty30/fandom-example-client/contracts/publication"
	"github.com/Liberty30/fandom-example-client/feedapi"
	"github.com/Liberty30/fandom-example-client/social"
	"github.com/Liberty30/fandom-example-client/storage"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

var (
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable metrics collection and reporting on the HTTP endpoint",
	}
	uploadHostFlag = &cli.StringFlag{
		Name:  "uploadhost",
		Usage: "Base URL of the content upload host",
		Value: social.DefaultConfig.UploadHost,
	}
	endpointFlag = &cli.StringFlag{
		Name:  "endpoint",
		Usage: "Ethereum node RPC endpoint",
		Value: social.DefaultConfig.Endpoint,
	}
	publisherFlag = &cli.StringFlag{
		Name:  "publisher",
		Usage: "Address of the DSNP publisher contract",
	}
	fromBlockFlag = &cli.Uint64Flag{
		Name:  "fromblock",
		Usage: "First block whose publications are ingested",
	}
	keyFileFlag = &cli.StringFlag{
		Name:  "keyfile",
		Usage: "Private key file used for signing announcements and transactions",
	}
	fetchConcurrencyFlag = &cli.IntFlag{
		Name:  "fetch.concurrency",
		Usage: "Number of announcements resolved in parallel",
		Value: social.DefaultConfig.FetchConcurrency,
	}
	fetchTimeoutFlag = &cli.DurationFlag{
		Name:  "fetch.timeout",
		Usage: "Timeout of a single content fetch",
		Value: social.DefaultConfig.FetchTimeout,
	}
	cacheSizeFlag = &cli.IntFlag{
		Name:  "fetch.cache",
		Usage: "Number of content bodies kept in memory",
		Value: social.DefaultConfig.ContentCacheSize,
	}
	retryBackoffFlag = &cli.DurationFlag{
		Name:  "retry.backoff",
		Usage: "Maximum delay between ledger resubscription attempts",
		Value: social.DefaultConfig.RetryBackoff,
	}
	httpHostFlag = &cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP-RPC server listening interface (disabled if empty)",
	}
	httpPortFlag = &cli.IntFlag{
		Name:  "http.port",
		Usage: "HTTP-RPC server listening port",
		Value: social.DefaultConfig.HTTPPort,
	}
	httpCorsFlag = &cli.StringFlag{
		Name:  "http.corsdomain",
		Usage: "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
	}
	fromFlag = &cli.StringFlag{
		Name:  "from",
		Usage: "Author identifier of the announcement (defaults to the key address)",
	}
	parentFlag = &cli.StringFlag{
		Name:     "parent",
		Usage:    "Content hash of the post replied to",
		Required: true,
	}
	dataDirFlag = &cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory of the upload host (in-memory if empty)",
	}
	listenFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "Listening address of the upload host",
		Value: ":3000",
	}
)

var configFlags = []cli.Flag{
	configFileFlag,
	uploadHostFlag,
	endpointFlag,
	publisherFlag,
	fromBlockFlag,
	keyFileFlag,
	fetchConcurrencyFlag,
	fetchTimeoutFlag,
	cacheSizeFlag,
	retryBackoffFlag,
	httpHostFlag,
	httpPortFlag,
	httpCorsFlag,
}

var app = &cli.App{
	Name:  "fandom",
	Usage: "the fandom social feed client",
	Flags: append([]cli.Flag{verbosityFlag, metricsFlag}, configFlags...),
	Before: func(ctx *cli.Context) error {
		setupLogging(ctx.Int(verbosityFlag.Name))
		return nil
	},
	Action: syncFeed,
	Commands: []*cli.Command{
		{
			Name:   "sync",
			Usage:  "Follow the publication ledger and serve the feed (default)",
			Flags:  configFlags,
			Action: syncFeed,
		},
		{
			Name:      "post",
			Usage:     "Publish a post",
			ArgsUsage: "<text>",
			Flags:     append([]cli.Flag{fromFlag}, configFlags...),
			Action:    sendPost,
		},
		{
			Name:      "reply",
			Usage:     "Publish a reply",
			ArgsUsage: "<text>",
			Flags:     append([]cli.Flag{fromFlag, parentFlag}, configFlags...),
			Action:    sendReply,
		},
		{
			Name:   "uploadhost",
			Usage:  "Run a local content upload host",
			Flags:  []cli.Flag{dataDirFlag, listenFlag, uploadHostFlag, httpCorsFlag},
			Action: runUploadHost,
		},
		dumpConfigCommand,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging(verbosity int) {
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	output := io.Writer(os.Stderr)
	if usecolor {
		output = colorable.NewColorable(os.Stderr)
	}
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), log.StreamHandler(output, log.TerminalFormat(usecolor))))
}

// client is a configured fandom client.
type client struct {
	config  social.Config
	eth     *ethclient.Client
	service *social.Service
	signer  *announcement.KeySigner
}

func newClient(ctx *cli.Context) (*client, error) {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.PublisherAddress == (common.Address{}) {
		return nil, fmt.Errorf("publisher contract address not configured (--%s)", publisherFlag.Name)
	}
	eth, err := ethclient.Dial(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", cfg.Endpoint, err)
	}
	c := &client{config: cfg, eth: eth}

	var opts *bind.TransactOpts
	if cfg.KeyFile != "" {
		key, err := crypto.LoadECDSA(cfg.KeyFile)
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("failed to load key: %v", err)
		}
		chainID, err := eth.ChainID(context.Background())
		if err != nil {
			eth.Close()
			return nil, fmt.Errorf("failed to get chain id: %v", err)
		}
		if opts, err = bind.NewKeyedTransactorWithChainID(key, chainID); err != nil {
			eth.Close()
			return nil, err
		}
		c.signer = announcement.NewKeySigner(key)
	}
	contract, err := publication.NewContract(cfg.PublisherAddress, eth, opts)
	if err != nil {
		eth.Close()
		return nil, err
	}
	contract.SetRetryBackoff(cfg.RetryBackoff)

	var signer announcement.Signer
	if c.signer != nil {
		signer = c.signer
	}
	c.service = social.New(cfg, storage.NewHTTPStore(cfg.UploadHost), signer, contract)
	return c, nil
}

// author returns the author identifier for publications.
func (c *client) author(ctx *cli.Context) (string, error) {
	if from := ctx.String(fromFlag.Name); from != "" {
		return from, nil
	}
	if c.signer == nil {
		return "", fmt.Errorf("no author: set --%s or --%s", fromFlag.Name, keyFileFlag.Name)
	}
	return c.signer.Address().Hex(), nil
}

// syncFeed is the sync command.
func syncFeed(ctx *cli.Context) error {
	c, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer c.eth.Close()

	c.service.Start(c.config.FromBlock)
	defer c.service.Stop()

	if c.config.HTTPHost != "" {
		srv, err := feedapi.NewServer(c.service)
		if err != nil {
			return err
		}
		defer srv.Stop()

		mux := http.NewServeMux()
		mux.Handle("/", feedapi.NewHandler(srv, c.config.HTTPCors))
		if metrics.Enabled {
			mux.Handle("/debug/metrics/prometheus", prometheus.Handler(metrics.DefaultRegistry))
		}
		addr := net.JoinHostPort(c.config.HTTPHost, strconv.Itoa(c.config.HTTPPort))
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return err
		}
		server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go server.Serve(listener)
		defer server.Close()
		log.Info("HTTP server started", "endpoint", "http://"+listener.Addr().String())
	}
	waitForSignal()
	return nil
}

// sendPost is the post command.
func sendPost(ctx *cli.Context) error {
	return send(ctx, func(c *client, from string, note *activity.Note) (common.Hash, error) {
		return c.service.SendPost(context.Background(), from, note)
	})
}

// sendReply is the reply command.
func sendReply(ctx *cli.Context) error {
	parent := ctx.String(parentFlag.Name)
	if len(common.FromHex(parent)) != common.HashLength {
		return fmt.Errorf("invalid parent hash %q", parent)
	}
	return send(ctx, func(c *client, from string, note *activity.Note) (common.Hash, error) {
		return c.service.SendReply(context.Background(), from, note, common.HexToHash(parent))
	})
}

func send(ctx *cli.Context, publish func(*client, string, *activity.Note) (common.Hash, error)) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one argument, the text to publish")
	}
	c, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer c.eth.Close()

	from, err := c.author(ctx)
	if err != nil {
		return err
	}
	hash, err := publish(c, from, activity.NewNote(ctx.Args().First(), time.Now()))
	if err != nil {
		return err
	}
	fmt.Println(hash.Hex())
	return nil
}

// runUploadHost is the uploadhost command.
func runUploadHost(ctx *cli.Context) error {
	var (
		baseURL = ctx.String(uploadHostFlag.Name)
		store   *storage.DBStore
	)
	if dir := ctx.String(dataDirFlag.Name); dir != "" {
		db, err := leveldb.New(dir, 16, 16, "fandom/uploads/", false)
		if err != nil {
			return fmt.Errorf("failed to open upload database: %v", err)
		}
		store = storage.NewDBStore(db, baseURL)
	} else {
		store = storage.NewMemoryStore(baseURL)
	}
	defer store.Close()

	listener, err := net.Listen("tcp", ctx.String(listenFlag.Name))
	if err != nil {
		return err
	}
	server := &http.Server{
		Handler:           storage.NewServer(store, splitAndTrim(ctx.String(httpCorsFlag.Name))),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go server.Serve(listener)
	defer server.Close()

	log.Info("Upload host started", "addr", listener.Addr(), "url", baseURL)
	waitForSignal()
	return nil
}

func waitForSignal() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigc)
	<-sigc
	log.Info("Got interrupt, shutting down...")
}
