package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/catalogd/internal/app/lookup"
	"github.com/John-Robertt/catalogd/internal/domain"
)

func newLookupCommand(cc *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <catalog-number>",
		Short: "查询单个目录号并输出结果 JSON",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return usageError{err: fmt.Errorf("需要且只需要一个目录号，实际 %d 个", len(args))}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := cc.load(cmd)
			if err != nil {
				return err
			}
			stderr := cmd.ErrOrStderr()
			log, err := newLogger(eff, stderr)
			if err != nil {
				return err
			}
			svc, err := newService(eff, log)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			var obs lookup.Observer
			if isTerminal(stderr) {
				ui := newProgressUI(stderr)
				ui.OnStart(eff, args[0])
				obs = ui
			}

			resp, err := svc.Lookup(cmd.Context(), args[0], obs)
			if err != nil {
				if errors.Is(err, lookup.ErrEmptyCatalog) {
					return usageError{err: err}
				}
				return err
			}
			if err := emitResponse(stdout, stderr, resp, isTerminal(stdout)); err != nil {
				return err
			}
			if resp.Status != domain.StatusSuccess {
				return errSilentFailure
			}
			return nil
		},
	}
}

// errSilentFailure 只用来产生非 0 退出码；结果已经输出过，不再重复打印。
var errSilentFailure = silentError{}

type silentError struct{}

func (silentError) Error() string { return "" }

// emitResponse：stdout 非 TTY 时只输出一个 LookupResponse JSON（摘要走 stderr）；
// TTY 时输出便于阅读的缩进 JSON 与一行摘要。
func emitResponse(stdout, stderr io.Writer, resp domain.LookupResponse, tty bool) error {
	enc := json.NewEncoder(stdout)
	if tty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("输出结果失败：%w", err)
	}
	fmt.Fprintln(stderr, summaryLine(resp))
	return nil
}

func summaryLine(resp domain.LookupResponse) string {
	if resp.Status == domain.StatusSuccess && resp.Data != nil {
		year := "-"
		if resp.Data.Year != nil {
			year = fmt.Sprint(*resp.Data.Year)
		}
		enriched := "no"
		if resp.Data.TMDBID != nil {
			enriched = "yes"
		}
		return fmt.Sprintf("完成：status=%s catalog=%s title=%q year=%s tmdb=%s",
			resp.Status, resp.CatalogNumber, resp.Data.Title, year, enriched)
	}
	return fmt.Sprintf("完成：status=%s message=%q", resp.Status, resp.Message)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
