package main

import (
	"github.com/spf13/cobra"

	"github.com/John-Robertt/catalogd/internal/config"
	"github.com/John-Robertt/catalogd/internal/server"
)

func newServeCommand(cc *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务（POST /lookup/catalog, GET /health）",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := cc.load(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(eff, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if eff.Source != "" {
				log.Info("config loaded", "path", eff.Source)
			}

			svc, err := newService(eff, log)
			if err != nil {
				return err
			}
			srv := server.New(svc, log.Named("server"))
			return srv.Run(cmd.Context(), eff.Addr)
		},
	}
	cmd.Flags().StringVar(&cc.addrFlag, "addr", "", "监听地址（默认 "+config.DefaultAddr+"，可用 CATALOGD_ADDR 覆盖）")
	return cmd
}
