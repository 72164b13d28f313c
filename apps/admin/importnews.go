package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// importNews creates or replaces (matched by slug) an article for every *.md file of dir.
// It stops at the first file that cannot be imported.
func (cli *commandLine) importNews(dir, author string) error {
	ctx := context.Background()

	var authorID string
	if author != "" {
		adm, err := cli.findAdmin(ctx, author)
		if err != nil {
			return errors.Wrapf(err, "finding author %q", author)
		}
		authorID = adm.ID
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no *.md file in %s", dir)
	}
	sort.Strings(files)

	for _, fp := range files {
		src, err := os.ReadFile(fp)
		if err != nil {
			return errors.Wrapf(err, "reading %s", fp)
		}
		art, created, err := cli.newsSvc.Import(ctx, authorID, src)
		if err != nil {
			return errors.Wrapf(err, "importing %s", filepath.Base(fp))
		}
		action := "updated"
		if created {
			action = "created"
		}
		fmt.Printf("%s: %s %q (%s)\n", filepath.Base(fp), action, art.Title, art.Slug)
	}
	return nil
}
