package cmd

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/detector"
	"github.com/kozaktomas/attendance-scanner/internal/identity"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "List, enroll and delete students",
	Long:  `List enrolled students. Use subcommands to enroll or delete them.`,
	RunE:  runStudentList,
}

var studentEnrollCmd = &cobra.Command{
	Use:   "enroll <name>",
	Short: "Enroll a student from face photos",
	Long: `Compute a face embedding from one or more photos and store it under name.
Each photo contributes its largest face; the embeddings are averaged.
Enrolling an existing name replaces the stored embedding.

Example:
  attendance-scanner student enroll "Alice Novak" --image a1.jpg --image a2.jpg --class 10A
  attendance-scanner student enroll "Bob Svoboda" --dir photos/bob`,
	Args: cobra.ExactArgs(1),
	RunE: runStudentEnroll,
}

var studentDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a student everywhere",
	Long:  `Remove the enrolled face, every class membership and all attendance records of a student.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStudentDelete,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentEnrollCmd, studentDeleteCmd)

	studentCmd.Flags().String("query", "", "Only list names containing this text")

	studentEnrollCmd.Flags().StringSlice("image", nil, "Photo of the student (repeatable)")
	studentEnrollCmd.Flags().String("dir", "", "Directory with photos of the student")
	studentEnrollCmd.Flags().String("class", "", "Also add the student to this class")

	studentDeleteCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

func runStudentList(cmd *cobra.Command, args []string) error {
	query := mustGetString(cmd, "query")
	return withApp(func(ctx context.Context, a *app) error {
		names, err := identity.NewService(a.identities, nil, nil).Names(ctx, query)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No students found.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		fmt.Printf("\nTotal: %d students\n", len(names))
		return nil
	})
}

// enrollmentPaths collects --image files and image files in --dir.
func enrollmentPaths(images []string, dir string) ([]string, error) {
	paths := append([]string(nil), images...)
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".jpg", ".jpeg", ".png", ".bmp", ".webp":
				paths = append(paths, filepath.Join(dir, e.Name()))
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images given, use --image or --dir")
	}
	if len(paths) > constants.MaxEnrollImages {
		return nil, fmt.Errorf("at most %d images allowed, got %d", constants.MaxEnrollImages, len(paths))
	}
	return paths, nil
}

func loadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return identity.DecodeImage(f)
}

func runStudentEnroll(cmd *cobra.Command, args []string) error {
	name := args[0]
	classID := mustGetString(cmd, "class")
	paths, err := enrollmentPaths(mustGetStringSlice(cmd, "image"), mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}

	images := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		img, err := loadImage(p)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		images = append(images, img)
	}

	return withApp(func(ctx context.Context, a *app) error {
		det, err := detector.New(&a.cfg.Detector)
		if err != nil {
			return fmt.Errorf("failed to create face detector: %w", err)
		}
		if closer, ok := det.(io.Closer); ok {
			defer closer.Close()
		}

		if classID != "" {
			if _, err := a.roster.Get(ctx, classID); err != nil {
				return fmt.Errorf("class %s: %w", classID, err)
			}
		}

		cache := identity.NewCache(a.identities, a.cfg.Matching.Metric, false)
		svc := identity.NewService(a.identities, det, cache)

		bar := progressbar.NewOptions(len(images),
			progressbar.OptionSetDescription("Computing embeddings"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
		result, err := svc.Enroll(ctx, name, images, func() { _ = bar.Add(1) })
		_ = bar.Finish()
		fmt.Println()
		if err != nil {
			return err
		}

		fmt.Printf("Enrolled %s: %d of %d images had a face (%d dimensions)\n",
			result.Name, result.FacesUsed, result.Images, result.Dimensions)

		if classID != "" {
			if err := a.roster.AddStudent(ctx, classID, name); err != nil {
				return err
			}
			fmt.Printf("Added %s to class %s\n", name, classID)
		}
		return nil
	})
}

func runStudentDelete(cmd *cobra.Command, args []string) error {
	name := args[0]
	if !mustGetBool(cmd, "yes") && !confirm(fmt.Sprintf("Delete %s from every class, with all attendance records?", name)) {
		fmt.Println("Cancelled.")
		return nil
	}
	return withApp(func(ctx context.Context, a *app) error {
		cache := identity.NewCache(a.identities, a.cfg.Matching.Metric, false)
		if err := identity.NewService(a.identities, nil, cache).Delete(ctx, name); err != nil {
			return err
		}
		fmt.Printf("Deleted %s.\n", name)
		return nil
	})
}
