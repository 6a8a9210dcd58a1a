package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/catalogd/internal/app/lookup"
	"github.com/John-Robertt/catalogd/internal/config"
	"github.com/John-Robertt/catalogd/internal/infra/httpx"
	"github.com/John-Robertt/catalogd/internal/logging"
	"github.com/John-Robertt/catalogd/internal/provider/google"
	"github.com/John-Robertt/catalogd/internal/provider/lddb"
	"github.com/John-Robertt/catalogd/internal/provider/tmdb"
)

// usageError 表示参数错误（退出码 2，与配置/运行失败区分）。
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) {
		return 2
	}
	return 1
}

// commandContext 保存全局 flag，并负责按需装配配置/日志/查询服务。
type commandContext struct {
	configFlag   string
	addrFlag     string
	logLevelFlag string

	getenv func(string) string
	getwd  func() (string, error)
}

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&commandContext{getenv: os.Getenv, getwd: os.Getwd})
}

func newRootCommandWith(cc *commandContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "catalogd",
		Short:         "LaserDisc 目录号元数据查询服务",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err: err}
	})

	root.PersistentFlags().StringVarP(&cc.configFlag, "config", "c", "", "配置文件路径（默认读取当前目录 "+config.FileName+"，不存在则忽略）")
	root.PersistentFlags().StringVar(&cc.logLevelFlag, "log-level", "", "日志级别：trace|debug|info|warn|error")

	root.AddCommand(newServeCommand(cc))
	root.AddCommand(newLookupCommand(cc))
	return root
}

func (cc *commandContext) load(cmd *cobra.Command) (config.EffectiveConfig, error) {
	cwd, err := cc.getwd()
	if err != nil {
		return config.EffectiveConfig{}, fmt.Errorf("读取当前目录失败：%w", err)
	}
	flags := cmd.Flags()
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:  cc.configFlag,
		Addr:        cc.addrFlag,
		AddrSet:     flags.Changed("addr"),
		LogLevel:    cc.logLevelFlag,
		LogLevelSet: flags.Changed("log-level"),
	}, cc.getenv)
}

func newLogger(eff config.EffectiveConfig, w io.Writer) (hclog.Logger, error) {
	return logging.New(logging.Options{Level: eff.LogLevel, Format: eff.LogFormat, Output: w})
}

// newService 按最终配置装配三阶段流水线；TMDb 缺少 API key 时 Enricher 保持启用但返回 disabled。
func newService(eff config.EffectiveConfig, log hclog.Logger) (*lookup.Service, error) {
	client, err := httpx.NewClient(eff.ProxyURL, eff.Timeout)
	if err != nil {
		return nil, fmt.Errorf("proxy.url 无效：%w", err)
	}
	if eff.TMDB.APIKey == "" {
		log.Warn("TMDb API key 未设置，跳过补全（TMDB_API_KEY / VITE_TMDB_API_KEY）")
	}

	return &lookup.Service{
		Locator:   google.Locator{BaseURL: eff.SearchBaseURL, Client: client},
		Extractor: lddb.Extractor{BaseURL: eff.LDDBBaseURL, Client: client},
		Enricher: tmdb.New(eff.TMDB.APIKey, eff.TMDB.BaseURL,
			tmdb.WithHTTPClient(client),
			tmdb.WithImageBaseURL(eff.TMDB.ImageBaseURL),
		),
		Log: log.Named("lookup"),
	}, nil
}
