package main

//
// Decode subcommand
//

import (
	"io"
	"os"

	"github.com/ooni/btls/internal/keymaterial"
	"github.com/spf13/cobra"
)

// decodeSubcommand returns the decode subcommand.
func decodeSubcommand() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "decode FILE",
		Short: "Converts PEM, encrypted PEM, PKCS#12, and age files to PEM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return decodeMain(args[0], []byte(password), os.Stdout)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password of the encrypted file")
	return cmd
}

// decodeMain writes the PEM content of the file at path to w.
func decodeMain(path string, password []byte, w io.Writer) error {
	data, err := keymaterial.LoadFile(path, password)
	if err != nil {
		return err
	}
	defer clear(data)
	_, err = w.Write(data)
	return err
}
