package cmdflags

import (
	"github.com/urfave/cli/v2"
)

func Store(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "store",
		Aliases:     []string{"s"},
		Usage:       "Directory holding the whisperwall database",
		Destination: out,
		Value:       *out,
	}
}

func Bind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "bind",
		Aliases:     []string{"b"},
		Usage:       "Address to bind the HTTP server",
		Destination: out,
		Value:       *out,
	}
}
