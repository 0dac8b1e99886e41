package main

//
// Serve subcommand
//

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/engineconfig"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/tlslayer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// serveOptions contains the options of the serve subcommand.
type serveOptions struct {
	tlsOptions
	address      string
	prometheus   string
	timeout      time.Duration
	trailer      string
	verifyClient string
}

// serveSubcommand returns the serve subcommand.
func serveSubcommand() *cobra.Command {
	options := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs a TLS echo server that detaches and sends a cleartext trailer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return options.main()
		},
	}
	flags := cmd.Flags()
	options.register(flags)
	flags.StringVar(&options.address, "address", "127.0.0.1:4433", "address where to listen")
	flags.StringVar(&options.prometheus, "prometheus", "", "address where to serve prometheus metrics")
	flags.DurationVar(&options.timeout, "timeout", 10*time.Second, "timeout of each operation")
	flags.StringVar(&options.trailer, "trailer", "", "cleartext to send after detaching")
	flags.StringVar(&options.verifyClient, "verify-client", "none", "client certificates: none, optional, or required")
	return cmd
}

var clientAuthFlags = map[string]uint64{
	"none":     0,
	"optional": engineconfig.VerifyClientOptional,
	"required": engineconfig.VerifyClient,
}

// main runs the server until we receive a signal.
func (o *serveOptions) main() error {
	registry, err := newRegistry("")
	if err != nil {
		return err
	}
	lh, err := registry.Table().Listen("tcp", o.address)
	if err != nil {
		return err
	}
	defer registry.Close(lh)
	if err := o.attach(registry, lh); err != nil {
		return err
	}
	log.Infof("serving TLS at %s", o.address)

	if o.prometheus != "" {
		promMux := http.NewServeMux()
		promMux.Handle("/metrics", promhttp.Handler())
		promSrv := &http.Server{Addr: o.prometheus, Handler: promMux}
		go promSrv.ListenAndServe()
		defer promSrv.Close()
		log.Infof("serving prometheus metrics at http://%s/metrics", o.prometheus)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	o.serve(ctx, registry, lh)
	log.Infof("interrupted by signal")
	return nil
}

// attach stores the TLS template in the listener lh.
func (o *serveOptions) attach(r *tlslayer.Registry, lh model.Handle) error {
	flags, err := o.flags()
	if err != nil {
		return err
	}
	clientAuth, found := clientAuthFlags[o.verifyClient]
	if !found {
		return errors.New("unknown --verify-client value: " + o.verifyClient)
	}
	flags |= clientAuth
	kps, err := o.keyPairs()
	if err != nil {
		return err
	}
	ca, err := o.authority()
	if err != nil {
		return err
	}
	return r.AttachServer(lh, flags, 0, kps, ca, o.alpn)
}

// serve accepts streams from lh until ctx is done.
func (o *serveOptions) serve(ctx context.Context, r *tlslayer.Registry, lh model.Handle) {
	wg := &sync.WaitGroup{}
	defer wg.Wait()
	for ctx.Err() == nil {
		h, err := r.Table().Accept(lh, time.Now().Add(250*time.Millisecond))
		if errors.Is(err, errorsx.ErrTimeout) {
			continue
		}
		if err != nil {
			log.Warnf("accept failed: %s", err.Error())
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := o.handle(r, lh, h); err != nil {
				log.Warnf("%s: %s", h, err.Error())
			}
		}()
	}
}

// handle echoes TLS data until the client closes the session, then detaches
// and sends the trailer in cleartext.
func (o *serveOptions) handle(r *tlslayer.Registry, lh, h model.Handle) error {
	defer r.Close(h)
	if err := r.AttachAccept(h, lh); err != nil {
		return err
	}
	if err := r.Handshake(h, time.Now().Add(o.timeout)); err != nil {
		return err
	}
	logSession(r, h)
	buffer := make([]byte, 1<<14)
	for {
		count, err := r.Recv(h, buffer, time.Now().Add(o.timeout))
		if err != nil {
			if errorsx.ErrorString(err) != errorsx.FailureEOFError {
				return err
			}
			break
		}
		if _, err := r.Send(h, buffer[:count], time.Now().Add(o.timeout)); err != nil {
			return err
		}
	}
	if err := r.Detach(h, time.Now().Add(o.timeout)); err != nil {
		return err
	}
	if o.trailer != "" {
		if _, err := r.Send(h, []byte(o.trailer), time.Now().Add(o.timeout)); err != nil {
			return err
		}
	}
	log.Infof("%s: done", h)
	return nil
}
