package vectordb

import (
	"path/filepath"
	"testing"
)

func TestProjectGroupCreatesDefaultProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "group")
	g, err := OpenProjectGroup(dir)
	if err != nil {
		t.Fatalf("OpenProjectGroup: %v", err)
	}
	if _, err := g.Project(DefaultProjectName); err != nil {
		t.Fatalf("expected default project to exist: %v", err)
	}
}

func TestProjectGroupCreateAndDeleteProject(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "group")
	g, err := OpenProjectGroup(dir)
	if err != nil {
		t.Fatalf("OpenProjectGroup: %v", err)
	}
	if _, err := g.CreateProject("team-a"); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if _, err := g.CreateProject("team-a"); err == nil {
		t.Fatal("expected error creating duplicate project")
	}
	if err := g.DeleteProject("team-a"); err != nil {
		t.Fatalf("DeleteProject: %v", err)
	}
	if _, err := g.Project("team-a"); err == nil {
		t.Fatal("expected team-a to be gone after DeleteProject")
	}
}

func TestProjectGroupRecoversAcrossInstances(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "group")
	g, err := OpenProjectGroup(dir)
	if err != nil {
		t.Fatalf("OpenProjectGroup: %v", err)
	}
	g.CreateProject("team-b")
	if err := g.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenProjectGroup(dir)
	if err != nil {
		t.Fatalf("reopen OpenProjectGroup: %v", err)
	}
	names := reopened.ListProjects()
	found := false
	for _, n := range names {
		if n == "team-b" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected recovered group to list team-b, got %v", names)
	}
	if _, err := reopened.Project(DefaultProjectName); err != nil {
		t.Fatalf("expected default project to survive reopen: %v", err)
	}
}

func TestProjectGroupAllowsDeletingDefault(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "group")
	g, err := OpenProjectGroup(dir)
	if err != nil {
		t.Fatalf("OpenProjectGroup: %v", err)
	}
	if err := g.DeleteProject(DefaultProjectName); err != nil {
		t.Fatalf("DeleteProject(default): %v", err)
	}
	if _, err := g.Project(DefaultProjectName); err == nil {
		t.Fatal("expected default to be gone after explicit deletion within this instance")
	}
}
