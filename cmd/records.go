package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/credentials"
	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/secrets"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Store a recruiter's AI key, model and scheduling link",
	RunE: func(cmd *cobra.Command, _ []string) error {
		apiKey, err := secrets.LoadOptional(secrets.Source{
			Name: "tenant api key",
			File: flagValue(cmd, "api-key-file"),
			Env:  "APPLYFLOW_TENANT_API_KEY",
		})
		if err != nil {
			return err
		}

		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			tenantID := flagValue(cmd, "id")
			err := rt.resolver.Configure(ctx, tenantID, credentials.Settings{
				Name:           flagValue(cmd, "name"),
				APIKey:         apiKey,
				Model:          flagValue(cmd, "model"),
				SchedulingLink: flagValue(cmd, "scheduling-link"),
			})
			if err != nil {
				return err
			}
			rt.logger.Info("tenant configured", zap.String("tenant_id", tenantID), zap.Bool("api_key_set", apiKey != ""))
			return nil
		})
	},
}

var candidateCmd = &cobra.Command{
	Use:   "candidate",
	Short: "Register a candidate",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			candidate := &database.Candidate{Name: flagValue(cmd, "name"), Email: flagValue(cmd, "email")}
			if candidate.Name == "" || candidate.Email == "" {
				return errors.New("--name and --email are required")
			}
			if err := rt.store.InsertCandidate(ctx, candidate); err != nil {
				return err
			}
			return printJSON(cmd, candidate)
		})
	},
}

var postingCmd = &cobra.Command{
	Use:   "posting",
	Short: "Create a job posting from text or a PDF document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			posting := &database.JobPosting{
				ID:              uuid.NewString(),
				TenantID:        flagValue(cmd, "tenant"),
				Title:           flagValue(cmd, "title"),
				DescriptionText: flagValue(cmd, "description"),
			}
			posting.PublicURL = "/jd/" + posting.ID

			if posting.TenantID == "" || posting.Title == "" {
				return errors.New("--tenant and --title are required")
			}

			if document := flagValue(cmd, "document"); document != "" {
				if rt.files == nil {
					return errors.New("document uploads need minio.enabled")
				}
				data, err := os.ReadFile(document)
				if err != nil {
					return fmt.Errorf("reading job description: %w", err)
				}
				if mediaType := detectMIMEType(document, data); mediaType != "application/pdf" {
					return fmt.Errorf("job description document must be a pdf, got %s", mediaType)
				}
				obj, err := rt.files.Store(ctx, "postings/"+posting.ID, filepath.Base(document), "application/pdf", data)
				if err != nil {
					return err
				}
				posting.DocumentKey = obj.Key
				posting.DocumentURL = obj.URL
				posting.DocumentMIMEType = "application/pdf"
			} else if posting.DescriptionText == "" {
				return errors.New("--description or --document is required")
			}

			if err := rt.store.InsertJobPosting(ctx, posting); err != nil {
				return err
			}
			return printJSON(cmd, posting)
		})
	},
}

func init() {
	tenantCmd.Flags().String("id", "", "tenant id")
	tenantCmd.Flags().String("name", "", "tenant display name")
	tenantCmd.Flags().String("api-key-file", "", "file holding the tenant's Gemini API key")
	tenantCmd.Flags().String("model", "", "Gemini model for this tenant")
	tenantCmd.Flags().String("scheduling-link", "", "https link candidates use to book interviews")

	candidateCmd.Flags().String("name", "", "candidate name")
	candidateCmd.Flags().String("email", "", "candidate email")

	postingCmd.Flags().String("tenant", "", "tenant id")
	postingCmd.Flags().String("title", "", "job title")
	postingCmd.Flags().String("description", "", "job description text")
	postingCmd.Flags().String("document", "", "job description pdf")

	rootCmd.AddCommand(tenantCmd, candidateCmd, postingCmd)
}
