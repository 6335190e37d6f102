package cli

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"igait-client/internal/domain"
)

func newSubmitCommand(a *app) *cobra.Command {
	var (
		front, side      string
		age, weight      int
		heightFeet       int
		heightInches     int
		sex, ethnicity   string
		email            string
		requiresApproval bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit front and side gait videos for screening",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := a.requireUser()
			if err != nil {
				return err
			}
			if email == "" {
				if user, ok := a.auth.CurrentUser().Unwrap(); ok {
					email = user.Email
				}
			}

			frontVideo, err := videoFromPath(front)
			if err != nil {
				return err
			}
			sideVideo, err := videoFromPath(side)
			if err != nil {
				return err
			}

			req := domain.ContributionRequest{
				UID:              uid,
				Email:            email,
				Age:              age,
				Sex:              sex,
				Ethnicity:        ethnicity,
				HeightFeet:       heightFeet,
				HeightInches:     heightInches,
				Weight:           weight,
				Role:             "user",
				FrontVideo:       frontVideo,
				SideVideo:        sideVideo,
				RequiresApproval: requiresApproval,
			}

			res := a.client.SubmitContribution(cmd.Context(), req, renderProgress)
			fmt.Println()
			if res.IsErr() {
				return res.Error()
			}

			color.Green("%s", res.Value())
			return nil
		},
	}

	cmd.Flags().StringVar(&front, "front", "", "path to the front-view video (required)")
	cmd.Flags().StringVar(&side, "side", "", "path to the side-view video (required)")
	cmd.Flags().IntVar(&age, "age", 0, "subject age in years (required)")
	cmd.Flags().StringVar(&sex, "sex", "", "subject sex (required)")
	cmd.Flags().StringVar(&ethnicity, "ethnicity", "", "subject ethnicity (required)")
	cmd.Flags().IntVar(&heightFeet, "height-feet", 0, "height, feet component (required)")
	cmd.Flags().IntVar(&heightInches, "height-inches", 0, "height, inches component")
	cmd.Flags().IntVar(&weight, "weight", 0, "weight in pounds (required)")
	cmd.Flags().StringVar(&email, "email", "", "results email (defaults to the account email)")
	cmd.Flags().BoolVar(&requiresApproval, "requires-approval", false, "hold the job for manual approval")

	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("side")
	_ = cmd.MarkFlagRequired("age")
	_ = cmd.MarkFlagRequired("sex")
	_ = cmd.MarkFlagRequired("ethnicity")
	_ = cmd.MarkFlagRequired("height-feet")
	_ = cmd.MarkFlagRequired("weight")

	return cmd
}

func newContributeCommand(a *app) *cobra.Command {
	var front, side, name, email string

	cmd := &cobra.Command{
		Use:   "contribute",
		Short: "Contribute gait videos to the research dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := a.requireUser()
			if err != nil {
				return err
			}
			if email == "" {
				if user, ok := a.auth.CurrentUser().Unwrap(); ok {
					email = user.Email
				}
			}

			frontVideo, err := videoFromPath(front)
			if err != nil {
				return err
			}
			sideVideo, err := videoFromPath(side)
			if err != nil {
				return err
			}

			req := domain.ResearchContributionRequest{
				UID:        uid,
				Name:       name,
				Email:      email,
				FrontVideo: frontVideo,
				SideVideo:  sideVideo,
			}

			res := a.client.SubmitResearchContribution(cmd.Context(), req, renderProgress)
			fmt.Println()
			if res.IsErr() {
				return res.Error()
			}

			color.Green("%s", res.Value())
			return nil
		},
	}

	cmd.Flags().StringVar(&front, "front", "", "path to the front-view video (required)")
	cmd.Flags().StringVar(&side, "side", "", "path to the side-view video (required)")
	cmd.Flags().StringVar(&name, "name", "", "contributor name (required)")
	cmd.Flags().StringVar(&email, "email", "", "contact email (defaults to the account email)")

	_ = cmd.MarkFlagRequired("front")
	_ = cmd.MarkFlagRequired("side")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

// videoFromPath stats the file now and defers opening it, so validation can
// reject oversized or mistyped files without reading them.
func videoFromPath(path string) (domain.VideoFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.VideoFile{}, fmt.Errorf("cannot access video %s: %w", path, err)
	}
	if info.IsDir() {
		return domain.VideoFile{}, fmt.Errorf("%s is a directory, not a video file", path)
	}

	return domain.VideoFile{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

func renderProgress(percent int) {
	fmt.Printf("\rUploading... %3d%%", percent)
}
