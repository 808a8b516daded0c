package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/quantrisk/internal/analysisconfig"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "분석 설정 확인/검증",
		Long: `분석 설정(YAML)을 검증하거나 적용될 최종 설정을 출력합니다.

명령어:
  show      기본값이 채워진 최종 설정과 해시 출력
  validate  YAML 파일 검증 (알 수 없는 필드, 범위 오류)`,
	}

	cmd.AddCommand(newConfigShowCmd(opts), newConfigValidateCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "최종 분석 설정 출력",
		Example: `  go run ./cmd/quant config show
  go run ./cmd/quant config show --config config/analysis/default.yaml --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := initDeps(cmd, opts)
			if err != nil {
				return err
			}
			hash, err := analysisconfig.Hash(d.analysis)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, map[string]interface{}{
					"config":      d.analysis,
					"config_hash": hash,
				})
			}

			body, err := yaml.Marshal(d.analysis)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			fmt.Fprintf(out, "# config_hash: %s\n", hash)
			_, err = out.Write(body)
			return err
		},
	}
}

func newConfigValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "validate [file]",
		Short:   "분석 설정 YAML 검증",
		Args:    cobra.MaximumNArgs(1),
		Example: `  go run ./cmd/quant config validate config/analysis/default.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.configFile
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("config file is required (argument or --config)")
			}

			cfg, raw, err := analysisconfig.Load(path)
			if err != nil {
				return err
			}
			snapshot, err := analysisconfig.NewRunSnapshot(cfg, raw)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			warnings := analysisconfig.Warn(cfg)
			if opts.jsonOut {
				return printJSON(out, map[string]interface{}{
					"valid":       true,
					"analysis_id": snapshot.AnalysisID,
					"version":     snapshot.Version,
					"config_hash": snapshot.ConfigHash,
					"warnings":    warnings,
				})
			}

			PrintSuccess(out, fmt.Sprintf("%s is valid", path))
			PrintKeyValue(out, "Analysis ID", snapshot.AnalysisID, 12)
			PrintKeyValue(out, "Version", snapshot.Version, 12)
			PrintKeyValue(out, "Config Hash", snapshot.ConfigHash, 12)
			for _, w := range warnings {
				PrintWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
			}
			return nil
		},
	}
}
