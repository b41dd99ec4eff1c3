package main

import (
	"crypto/tls"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/goburrow/quic"
	"github.com/goburrow/quic/transport"
)

func serverCommand(args []string) error {
	cmd := flag.NewFlagSet("server", flag.ExitOnError)
	listenAddr := cmd.String("listen", "0.0.0.0:4433", "listen on the given IP:port")
	certFile := cmd.String("cert", "", "TLS certificate file (overrides config file)")
	keyFile := cmd.String("key", "", "TLS private key file (overrides config file)")
	configFile := cmd.String("config", "", "YAML config file")
	logLevel := cmd.Int("v", 2, "log verbose: 0=off 1=error 2=info 3=debug 4=trace")
	cmd.Parse(args)

	config := newConfig()
	if *configFile != "" {
		if err := loadConfigFile(config, *configFile); err != nil {
			return err
		}
	}
	if *certFile != "" && *keyFile != "" {
		cert, err := loadKeyPair(*certFile, *keyFile)
		if err != nil {
			return err
		}
		config.TLS.Certificates = []tls.Certificate{cert}
	}
	if len(config.TLS.Certificates) == 0 {
		return fmt.Errorf("server requires a TLS certificate: pass -cert/-key or config.tls in the config file")
	}

	handler := &serverHandler{}
	server := quic.NewServer(config)
	server.SetHandler(handler)
	server.SetLogger(*logLevel, os.Stdout)
	if err := server.ListenAndServe(*listenAddr); err != nil {
		return err
	}
	log.Printf("quince server listening on %s", *listenAddr)
	select {}
}

type serverHandler struct{}

func (s *serverHandler) Serve(c quic.Conn, events []transport.Event) {
	for _, e := range events {
		switch e.Type {
		case quic.EventConnAccept:
			log.Printf("%s connected", c.RemoteAddr())
		case transport.EventStream:
			st := c.Stream(e.StreamID)
			if st == nil {
				continue
			}
			buf := make([]byte, 4096)
			n, err := st.Read(buf)
			if n > 0 {
				_, _ = st.Write(buf[:n])
			}
			if err != nil {
				_ = st.Close()
			}
		case quic.EventConnClose:
			log.Printf("%s disconnected", c.RemoteAddr())
		}
	}
}
