package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/apprenticelog/apprenticelog/api/v1"
	"github.com/apprenticelog/apprenticelog/pkg/trainingyear"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <user>",
		Short: "Show the comment context of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doAndPrint(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, commentContextPath(args[0]), nil)
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored comment contexts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return doAndPrint(cmd.Context(), cmd.OutOrStdout(), http.MethodGet, "/api/v1/comment-contexts", nil)
		},
	}
}

func newPutCmd() *cobra.Command {
	var spec v1.CommentContextSpec

	cmd := &cobra.Command{
		Use:   "put <user>",
		Short: "Store the comment context of a user",
		Long:  "Store the comment context of a user. Values are sent as given; unset flags store empty text or year 0.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doAndPrint(cmd.Context(), cmd.OutOrStdout(), http.MethodPut, commentContextPath(args[0]), spec)
		},
	}

	cmd.Flags().StringVar(&spec.TrainingStartDate, "start-date", "", "training start date, e.g. 01.08.2024")
	cmd.Flags().IntVar(&spec.TrainingYear, "year", 0, "training year")
	cmd.Flags().StringVar(&spec.TeamName, "team", "", "team name")

	return cmd
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user>",
		Short: "Delete the comment context of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := doAndPrint(cmd.Context(), cmd.OutOrStdout(), http.MethodDelete, commentContextPath(args[0]), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <user>",
		Short: "Look a user up in the directory and store the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doAndPrint(cmd.Context(), cmd.OutOrStdout(), http.MethodPost, commentContextPath(args[0])+"/resolve", nil)
		},
	}
}

func newDeriveYearCmd() *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "derive-year <start-date>",
		Short: "Print the training year for a start date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now()
			if at != "" {
				parsed, err := trainingyear.ParseStartDate(at, nil)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				ref = parsed
			}

			year, err := trainingyear.DeriveFromText(args[0], nil, ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), year)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "reference date instead of today")

	return cmd
}
