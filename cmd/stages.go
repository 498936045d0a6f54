package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/database"
	"github.com/spigell/applyflow/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract FILE",
	Short: "Extract a résumé file for a candidate and posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			resume, err := extractFile(ctx, rt, flagValue(cmd, "candidate"), flagValue(cmd, "posting"), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, resume)
		})
	},
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score an extracted résumé against a posting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			application, err := rt.pipeline.Score(ctx, flagValue(cmd, "resume"), flagValue(cmd, "posting"))
			if err != nil {
				return err
			}
			return printJSON(cmd, application)
		})
	},
}

var letterCmd = &cobra.Command{
	Use:   "letter",
	Short: "Generate a cover letter for a scored application",
	RunE: func(cmd *cobra.Command, _ []string) error {
		tone, err := chooseTone(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			letter, err := rt.pipeline.GenerateCoverLetter(ctx, flagValue(cmd, "application"), tone)
			if err != nil {
				return err
			}
			cmd.Println(letter)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Change the status of an application",
	RunE: func(cmd *cobra.Command, _ []string) error {
		status, err := chooseStatus(cmd)
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			application, err := rt.pipeline.UpdateStatus(ctx, flagValue(cmd, "application"), status)
			if err != nil {
				return err
			}
			return printJSON(cmd, application)
		})
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show where an application stands in the pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			progress, err := rt.pipeline.State(ctx, pipeline.Ref{
				ResumeID:      flagValue(cmd, "resume"),
				PostingID:     flagValue(cmd, "posting"),
				ApplicationID: flagValue(cmd, "application"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, progress)
		})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply FILE",
	Short: "Run extraction, scoring and the cover letter for one résumé",
	Long: `Runs the three stages one after another. Every stage is invoked explicitly,
and the ids printed after each stage can be used to resume a failed run with
the score or letter commands.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tone, err := pipeline.ParseTone(flagValue(cmd, "tone"))
		if err != nil {
			return err
		}
		return withRuntime(cmd, func(ctx context.Context, rt *runtime) error {
			return apply(ctx, cmd, rt, flagValue(cmd, "candidate"), flagValue(cmd, "posting"), args[0], tone)
		})
	},
}

func init() {
	extractCmd.Flags().String("candidate", "", "candidate id")
	extractCmd.Flags().String("posting", "", "job posting id")

	scoreCmd.Flags().String("resume", "", "resume id")
	scoreCmd.Flags().String("posting", "", "job posting id")

	letterCmd.Flags().String("application", "", "application id")
	letterCmd.Flags().StringP("tone", "t", "", "letter tone: "+joinTones())

	statusCmd.Flags().String("application", "", "application id")
	statusCmd.Flags().String("set", "", "new status: "+joinStatuses())

	stateCmd.Flags().String("resume", "", "resume id")
	stateCmd.Flags().String("posting", "", "job posting id")
	stateCmd.Flags().String("application", "", "application id")

	applyCmd.Flags().String("candidate", "", "candidate id")
	applyCmd.Flags().String("posting", "", "job posting id")
	applyCmd.Flags().StringP("tone", "t", "", "letter tone: "+joinTones())
	applyCmd.Flags().Bool("skip-letter", false, "stop after scoring")

	rootCmd.AddCommand(extractCmd, scoreCmd, letterCmd, statusCmd, stateCmd, applyCmd)
}

// apply runs the stages in order as an explicit caller. Nothing chains by
// itself: each stage gets the id returned by the previous one.
func apply(ctx context.Context, cmd *cobra.Command, rt *runtime, candidateID, postingID, file string, tone pipeline.Tone) error {
	log := rt.logger.With(zap.String("posting_id", postingID), zap.String("candidate_id", candidateID))

	resume, err := extractFile(ctx, rt, candidateID, postingID, file)
	if err != nil {
		return err
	}
	log.Info("stage finished", zap.String("stage", string(pipeline.StageExtract)), zap.String("resume_id", resume.ID))

	application, err := rt.pipeline.Score(ctx, resume.ID, postingID)
	if err != nil {
		log.Error("scoring failed, resume with: applyflow score",
			zap.String("resume_id", resume.ID),
			zap.Bool("retryable", pipeline.Retryable(err)),
		)
		return err
	}
	log.Info("stage finished",
		zap.String("stage", string(pipeline.StageScore)),
		zap.String("application_id", application.ID),
		zap.Int("score", application.MatchScore),
		zap.String("status", string(application.Status)),
	)

	if skip, _ := cmd.Flags().GetBool("skip-letter"); skip {
		return printJSON(cmd, application)
	}

	letter, err := rt.pipeline.GenerateCoverLetter(ctx, application.ID, tone)
	if err != nil {
		log.Error("cover letter failed, resume with: applyflow letter",
			zap.String("application_id", application.ID),
			zap.Bool("retryable", pipeline.Retryable(err)),
		)
		return err
	}
	application.CoverLetter = &letter

	return printJSON(cmd, application)
}

func extractFile(ctx context.Context, rt *runtime, candidateID, postingID, path string) (*database.ResumeArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume file: %w", err)
	}

	return rt.pipeline.Extract(ctx, candidateID, postingID, pipeline.FileBlob{
		Name:     filepath.Base(path),
		MIMEType: detectMIMEType(path, data),
		Data:     data,
	})
}

// detectMIMEType prefers the file extension and falls back to sniffing.
func detectMIMEType(path string, data []byte) string {
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

func chooseTone(cmd *cobra.Command) (pipeline.Tone, error) {
	if raw := flagValue(cmd, "tone"); raw != "" || !interactive() {
		return pipeline.ParseTone(raw)
	}

	items := make([]string, 0, len(pipeline.Tones))
	for _, tone := range pipeline.Tones {
		items = append(items, string(tone))
	}
	prompt := promptui.Select{Label: "Choose the letter tone", Items: items}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return pipeline.Tone(selected), nil
}

func chooseStatus(cmd *cobra.Command) (database.ApplicationStatus, error) {
	if raw := flagValue(cmd, "set"); raw != "" {
		status := database.ApplicationStatus(strings.ToLower(raw))
		if !status.Valid() {
			return "", fmt.Errorf("unknown status %q, expected one of: %s", raw, joinStatuses())
		}
		return status, nil
	}
	if !interactive() {
		return "", errors.New("--set is required when not running in a terminal")
	}

	items := make([]string, 0, len(database.ApplicationStatuses))
	for _, status := range database.ApplicationStatuses {
		items = append(items, string(status))
	}
	prompt := promptui.Select{Label: "Choose the new status", Items: items}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return database.ApplicationStatus(selected), nil
}

func withRuntime(cmd *cobra.Command, fn func(context.Context, *runtime) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := fn(ctx, rt); err != nil {
		rt.logger.Error("command failed",
			zap.String("command", cmd.Name()),
			zap.String("outcome", pipeline.Outcome(err)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func flagValue(cmd *cobra.Command, name string) string {
	value, _ := cmd.Flags().GetString(name)
	return strings.TrimSpace(value)
}

func printJSON(cmd *cobra.Command, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(pretty))
	return nil
}

func interactive() bool {
	info, err := os.Stdin.Stat()
	return err == nil && info.Mode()&os.ModeCharDevice != 0
}

func joinTones() string {
	tones := make([]string, 0, len(pipeline.Tones))
	for _, tone := range pipeline.Tones {
		tones = append(tones, string(tone))
	}
	return strings.Join(tones, ", ")
}

func joinStatuses() string {
	statuses := make([]string, 0, len(database.ApplicationStatuses))
	for _, status := range database.ApplicationStatuses {
		statuses = append(statuses, string(status))
	}
	return strings.Join(statuses, ", ")
}
