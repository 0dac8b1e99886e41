package main

//
// Connect subcommand
//

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/ooni/btls/internal/errorsx"
	"github.com/ooni/btls/internal/model"
	"github.com/ooni/btls/internal/tlslayer"
	"github.com/spf13/cobra"
)

// connectOptions contains the options of the connect subcommand.
type connectOptions struct {
	tlsOptions
	detach     bool
	get        string
	parrot     string
	send       string
	serverName string
	timeout    time.Duration
}

// connectSubcommand returns the connect subcommand.
func connectSubcommand() *cobra.Command {
	options := &connectOptions{}
	cmd := &cobra.Command{
		Use:   "connect HOST:PORT",
		Short: "Connects to a TLS server and prints the session properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newRegistry(options.parrot)
			if err != nil {
				return err
			}
			return options.run(cmd.Context(), registry, args[0], os.Stdout)
		},
	}
	flags := cmd.Flags()
	options.register(flags)
	flags.BoolVar(&options.detach, "detach", false, "detach TLS after the exchange and read cleartext")
	flags.StringVar(&options.get, "get", "", "path to fetch using HTTP/1.1 after the handshake")
	flags.StringVar(&options.parrot, "parrot", "", "ClientHello to parrot: chrome, firefox, or golang")
	flags.StringVar(&options.send, "send", "", "text to send after the handshake")
	flags.StringVar(&options.serverName, "sni", "", "server name (default: the host)")
	flags.DurationVar(&options.timeout, "timeout", 10*time.Second, "timeout of each operation")
	return cmd
}

// run connects to address, performs the handshake, optionally sends the
// configured text, and copies what the server sends back to w. When detaching,
// we copy a single TLS read, detach, and then copy the cleartext.
func (o *connectOptions) run(ctx context.Context, r *tlslayer.Registry, address string, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	flags, err := o.flags()
	if err != nil {
		return err
	}
	kps, err := o.keyPairs()
	if err != nil {
		return err
	}
	ca, err := o.authority()
	if err != nil {
		return err
	}
	serverName := o.serverName
	if serverName == "" {
		host, _, err := net.SplitHostPort(address)
		if err != nil {
			return err
		}
		serverName = host
	}

	dialCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	h, err := r.Table().Dial(dialCtx, "tcp", address)
	if err != nil {
		return err
	}
	defer r.Close(h)

	if err := r.AttachClientKP(h, flags, 0, kps, ca, o.alpn, serverName); err != nil {
		return err
	}
	if err := r.Handshake(h, time.Now().Add(o.timeout)); err != nil {
		return err
	}
	log.Infof("handshake with %s complete using %s", address, r.Engine().Name())
	logSession(r, h)

	if o.get != "" {
		return o.httpGet(ctx, r, h, serverName, w)
	}
	if o.send == "" {
		return r.Detach(h, time.Now().Add(o.timeout))
	}
	if _, err := r.Send(h, []byte(o.send), time.Now().Add(o.timeout)); err != nil {
		return err
	}
	if !o.detach {
		return o.copyUntilEOF(r, h, w)
	}
	buffer := make([]byte, 1<<14)
	count, err := r.Recv(h, buffer, time.Now().Add(o.timeout))
	if err != nil {
		return err
	}
	if _, err := w.Write(buffer[:count]); err != nil {
		return err
	}
	if err := r.Detach(h, time.Now().Add(o.timeout)); err != nil {
		return err
	}
	log.Infof("detached: reading cleartext")
	return o.copyUntilEOF(r, h, w)
}

// copyUntilEOF copies from h to w until EOF or timeout.
func (o *connectOptions) copyUntilEOF(r *tlslayer.Registry, h model.Handle, w io.Writer) error {
	buffer := make([]byte, 1<<14)
	for {
		count, err := r.Recv(h, buffer, time.Now().Add(o.timeout))
		if _, werr := w.Write(buffer[:count]); werr != nil {
			return werr
		}
		switch {
		case err == nil:
			continue
		case errorsx.ErrorString(err) == errorsx.FailureEOFError:
			return nil
		case errors.Is(err, errorsx.ErrTimeout):
			log.Infof("no more data from the peer")
			return nil
		default:
			return err
		}
	}
}
