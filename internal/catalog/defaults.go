package catalog

import "strings"

// renderTemplate substitutes the {target} placeholder.
func renderTemplate(tmpl, target string) string {
	return strings.ReplaceAll(tmpl, "{target}", target)
}

// Default returns the built-in catalog used when no catalog file is
// configured. It is intentionally small; real deployments extend it via
// a YAML catalog.
func Default() *Catalog {
	c := &Catalog{
		Categories: []Category{
			{
				Name: "service",
				Commands: []string{
					"systemctl status {target}",
					"systemctl restart {target}",
					"systemctl reset-failed {target}",
				},
			},
			{
				Name: "package",
				Commands: []string{
					"dpkg --configure -a",
					"apt-get install --reinstall -y {target}",
				},
			},
			{
				Name: "filesystem",
				Commands: []string{
					"df -h {target}",
					"rm -rf /var/cache/{target}/*",
				},
			},
		},
		Locations: []string{"local", "chroot", "container"},
		Mutators: []Mutator{
			{Name: "plain", Kind: MutatorNone},
			{Name: "force", Kind: MutatorAppendFlag, Param: "--force"},
			{Name: "retry_x3", Kind: MutatorWrapRetry, Param: "3"},
			{Name: "timeout_verbose", Kind: MutatorTimeoutVerbose, Param: "30"},
		},
		Tiers: []Tier{
			{Name: "observe", Level: 0},
			{Name: "adjust", Level: 1},
			{Name: "restart", Level: 2},
			{Name: "rebuild", Level: 3},
		},
		DowngradeLevel: 3,
		PreStep:        "protection-downgrade",
		Shortcuts: []ShortcutRule{
			{
				Priority: 100,
				Match:    map[string]string{"service.state": "failed"},
				Category: "service",
				Command:  "systemctl restart {target}",
				Location: "local",
				Tier:     "restart",
			},
			{
				Priority: 50,
				Match:    map[string]string{"dpkg.state": "interrupted*"},
				Category: "package",
				Command:  "dpkg --configure -a",
				Location: "local",
				Tier:     "adjust",
			},
		},
	}
	c.normalize()
	return c
}
