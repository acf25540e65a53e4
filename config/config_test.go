package config

import "testing"

func TestWithDefaultsFillsZeroFields(t *testing.T) {
	c := WithDefaults(Config{Dir: "out", TmpDir: "tmp", TaggingRules: "rules.yaml"})

	if c.SortRAMMB != DefaultSortRAMMBFat {
		t.Errorf("SortRAMMB = %d, want fat default %d", c.SortRAMMB, DefaultSortRAMMBFat)
	}
	if c.SortThreads != DefaultSortThreads {
		t.Errorf("SortThreads = %d, want %d", c.SortThreads, DefaultSortThreads)
	}
	if c.MaxSuperIterations != DefaultMaxSuperIterations {
		t.Errorf("MaxSuperIterations = %d, want %d", c.MaxSuperIterations, DefaultMaxSuperIterations)
	}
	if c.PruneIsolatedM != DefaultPruneIsolatedM {
		t.Errorf("PruneIsolatedM = %d, want %d", c.PruneIsolatedM, DefaultPruneIsolatedM)
	}
	if c.PruneShortM != DefaultPruneShortM {
		t.Errorf("PruneShortM = %d, want %d", c.PruneShortM, DefaultPruneShortM)
	}
	if c.PruneStraightM != DefaultPruneStraightM {
		t.Errorf("PruneStraightM = %d, want %d", c.PruneStraightM, DefaultPruneStraightM)
	}
}

func TestWithDefaultsSlimPicksSlimRAM(t *testing.T) {
	c := WithDefaults(Config{Dir: "out", TmpDir: "tmp", TaggingRules: "rules.yaml", Slim: true})

	if c.SortRAMMB != DefaultSortRAMMBSlim {
		t.Errorf("SortRAMMB = %d, want slim default %d", c.SortRAMMB, DefaultSortRAMMBSlim)
	}
}

func TestWithDefaultsPreservesExplicitValues(t *testing.T) {
	c := WithDefaults(Config{
		Dir: "out", TmpDir: "tmp", TaggingRules: "rules.yaml",
		SortRAMMB: 128, SortThreads: 8,
		MaxSuperIterations: 2, PruneIsolatedM: 10, PruneShortM: 1, PruneStraightM: 1,
	})

	if c.SortRAMMB != 128 || c.SortThreads != 8 {
		t.Errorf("explicit sort params overridden: %+v", c)
	}
	if c.MaxSuperIterations != 2 || c.PruneIsolatedM != 10 || c.PruneShortM != 1 || c.PruneStraightM != 1 {
		t.Errorf("explicit prune/super params overridden: %+v", c)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"missing dir", Config{TmpDir: "tmp", TaggingRules: "r", SortThreads: 1}, ErrNoDir},
		{"missing tmp_dir", Config{Dir: "out", TaggingRules: "r", SortThreads: 1}, ErrNoTmpDir},
		{"missing tagging_rules", Config{Dir: "out", TmpDir: "tmp", SortThreads: 1}, ErrNoTagging},
		{"missing sort_threads", Config{Dir: "out", TmpDir: "tmp", TaggingRules: "r"}, ErrNoThreads},
		{"complete", Config{Dir: "out", TmpDir: "tmp", TaggingRules: "r", SortThreads: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err != tt.want {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateAfterWithDefaults(t *testing.T) {
	c := WithDefaults(Config{Dir: "out", TmpDir: "tmp", TaggingRules: "rules.yaml"})
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() after WithDefaults = %v, want nil", err)
	}
}
