package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/couchbase/gocb/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"neon-market/internal/market/reader"
	"neon-market/internal/market/service"
	"neon-market/internal/market/writer"
	"neon-market/internal/notify"
	"neon-market/internal/server"
	"neon-market/internal/twitter"
	"neon-market/internal/wallet"
)

type Config struct {
	CouchbaseEndpoint string `env:"COUCHBASE_ENDPOINT,required"`

	CouchbaseUsername string `env:"COUCHBASE_USERNAME,required"`

	CouchbasePassword string `env:"COUCHBASE_PASSWORD,required"`

	CouchbaseBucket string `env:"COUCHBASE_BUCKET,required"`

	CouchbaseCertFile string `env:"COUCHBASE_CERT_FILE"`

	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	WalletAddress string `env:"WALLET_ADDRESS"`
}

func main() {
	cfg, err := getConfig()
	if err != nil {
		log.Fatalf("unable to get config: %s", err)
	}

	cluster, err := getCluster(cfg)
	if err != nil {
		log.Fatalf("unable to initialize cluster: %s", err)
	}

	logger, err := zap.NewDevelopment(
		zap.WithCaller(true),
	)
	if err != nil {
		log.Fatalf("unable to initialize logger: %s", err)
	}

	srv, err := getServer(logger, cluster, cfg)
	if err != nil {
		log.Fatalf("unable to initialize server: %s", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)

	// handle interrupts
	g.Go(func() error {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		select {
		case <-gctx.Done():
			return nil
		case <-c:
			cancel()
			return nil
		}
	})

	g.Go(func() error {
		return srv.Start(gctx, cfg.HTTPAddr)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("error waiting for go routines to finish: %s", err)
	}
}

func getConfig() (*Config, error) {
	// .env is optional, real deployments use the environment directly
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func getServer(logger *zap.Logger, cluster *gocb.Cluster, cfg *Config) (*server.Server, error) {
	r, err := reader.NewService(logger, cluster, cfg.CouchbaseBucket)
	if err != nil {
		return nil, err
	}

	w, err := writer.NewService(logger, cluster, cfg.CouchbaseBucket)
	if err != nil {
		return nil, err
	}

	publisher, err := twitter.NewPublisher(logger)
	if err != nil {
		return nil, err
	}

	svc, err := service.NewService(logger, r, w, publisher)
	if err != nil {
		return nil, err
	}

	notifier, err := notify.NewLog(logger)
	if err != nil {
		return nil, err
	}

	address := cfg.WalletAddress
	if address == "" {
		address = service.GenerateAddress()
	}
	provider, err := wallet.NewStubProvider(logger, address)
	if err != nil {
		return nil, err
	}

	return server.New(logger, svc, notifier, provider)
}

func getCluster(cfg *Config) (*gocb.Cluster, error) {
	opts := gocb.ClusterOptions{
		Username: cfg.CouchbaseUsername,
		Password: cfg.CouchbasePassword,
	}

	endpoint := "couchbase://" + cfg.CouchbaseEndpoint
	if cfg.CouchbaseCertFile != "" {
		b, err := ioutil.ReadFile(cfg.CouchbaseCertFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read cert file: %w", err)
		}

		rootCAs, _ := x509.SystemCertPool()
		if rootCAs == nil {
			rootCAs = x509.NewCertPool()
		}

		if ok := rootCAs.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("unable to append certs to pool")
		}

		opts.SecurityConfig = gocb.SecurityConfig{
			TLSRootCAs: rootCAs,
		}
		endpoint = "couchbases://" + cfg.CouchbaseEndpoint
	}

	c, err := gocb.Connect(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to cluster: %w", err)
	}

	if err := c.WaitUntilReady(time.Second*5, nil); err != nil {
		return nil, fmt.Errorf("unable to wait until cluster ready: %w", err)
	}

	return c, nil
}
