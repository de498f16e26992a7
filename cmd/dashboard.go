package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dashboard-engine/internal/dashboard"
	"github.com/sells-group/dashboard-engine/internal/scope"
	"github.com/sells-group/dashboard-engine/pkg/export"
)

var (
	dashView    string
	dashUser    string
	dashOrg     string
	dashCRMRole string
	dashScope   string
	dashLimit   int
	dashExport  string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Build one dashboard view and print or export it",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		view := dashboard.View(dashView)
		objectType, ok := view.ObjectType()
		if !ok {
			return eris.Errorf("unknown view %q", dashView)
		}

		snap := e.Store.Current()
		viewer := scope.Viewer{UserID: dashUser, OrgID: dashOrg}
		viewer.Role = snap.Config.RoleFor(dashUser, dashCRMRole)

		records, err := fetchForObject(ctx, e.CRM, objectType, cfg.Dashboard.FetchLimit)
		if err != nil {
			return err
		}

		result, err := e.Aggregator.Build(ctx, records, dashboard.Request{
			View:   view,
			Viewer: viewer,
			Scope:  dashScope,
			Limit:  dashLimit,
		}, &snap.Config)
		if err != nil {
			return err
		}
		result.ConfigVersion = snap.Version

		if dashExport != "" {
			if err := export.WriteXLSX(result, dashExport); err != nil {
				return err
			}
			zap.L().Info("view exported",
				zap.String("view", dashView),
				zap.String("path", dashExport),
				zap.Int("records", len(result.Records)),
			)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashView, "view", "priority-accounts", "view to build (priority-accounts, at-risk-deals, pipeline-forecast, renewals)")
	dashboardCmd.Flags().StringVar(&dashUser, "user", "", "viewer user ID")
	dashboardCmd.Flags().StringVar(&dashOrg, "org", "", "viewer org ID")
	dashboardCmd.Flags().StringVar(&dashCRMRole, "crm-role", "", "viewer CRM role name")
	dashboardCmd.Flags().StringVar(&dashScope, "scope", "", "ownership scope (mine, team, all; default per role)")
	dashboardCmd.Flags().IntVar(&dashLimit, "limit", 0, "max records to return (0 = all)")
	dashboardCmd.Flags().StringVar(&dashExport, "export", "", "write the view to this .xlsx path instead of stdout")
	dashboardCmd.MarkFlagRequired("user") //nolint:errcheck
	rootCmd.AddCommand(dashboardCmd)
}
