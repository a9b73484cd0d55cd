package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/platefinder/internal/lookup"
	"github.com/MeKo-Tech/platefinder/internal/testutil"
	"github.com/MeKo-Tech/platefinder/internal/utils"
	"github.com/cucumber/godog"
)

// aPlateImage renders the standard plate scene into the temp directory.
func (testCtx *TestContext) aPlateImage(name string) error {
	return testCtx.writeScene(name, testutil.StandardScene())
}

// aBlankImage renders a scene without any plate-like region.
func (testCtx *TestContext) aBlankImage(name string) error {
	return testCtx.writeScene(name, testutil.NewPlateScene(320, 240))
}

func (testCtx *TestContext) writeScene(name string, scene testutil.PlateScene) error {
	path := testCtx.TempPath(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create fixture directory: %w", err)
	}
	if err := utils.SavePNG(path, scene.RGBA()); err != nil {
		return fmt.Errorf("failed to write scene %s: %w", name, err)
	}
	return nil
}

// aPlateDatabaseWith writes a one-record database file.
func (testCtx *TestContext) aPlateDatabaseWith(name, plate string, year int, vehicleMake, model, owner string) error {
	db := lookup.Database{
		lookup.Key(plate): {Make: vehicleMake, Model: model, Year: year, Owner: owner},
	}
	if err := lookup.SaveFile(testCtx.TempPath(name), db); err != nil {
		return fmt.Errorf("failed to write plate database: %w", err)
	}
	return nil
}

// aFileWithContent writes an arbitrary file, used for malformed inputs.
func (testCtx *TestContext) aFileWithContent(name, content string) error {
	if err := os.WriteFile(testCtx.TempPath(name), []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// anEmptyDirectory creates a directory without images.
func (testCtx *TestContext) anEmptyDirectory(name string) error {
	return os.MkdirAll(testCtx.TempPath(name), 0o750)
}

// RegisterFixtureSteps registers the steps that create input files.
func (testCtx *TestContext) RegisterFixtureSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a plate image "([^"]*)"$`, testCtx.aPlateImage)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a plate database "([^"]*)" with "([^"]*)" registered to a (\d+) (\S+) (\S+) owned by "([^"]*)"$`,
		testCtx.aPlateDatabaseWith)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileWithContent)
	sc.Step(`^an empty directory "([^"]*)"$`, testCtx.anEmptyDirectory)
}
