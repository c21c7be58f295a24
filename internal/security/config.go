package security

import (
	"log"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v2"
)

// overrideFile is the on-disk shape for customizing the default policy
// lists, loaded from $RUSTYTERM_CONFIG_HOME/policy.yaml if present.
type overrideFile struct {
	BlockedForms []string `yaml:"blocked_forms"`
	AllowVerbs   []string `yaml:"allow_verbs"`
	ConfirmVerbs []string `yaml:"confirm_verbs"`
}

// LoadPolicyFile reads a YAML override for the default policy. A missing
// file is not an error — the default policy applies. A malformed file is
// reported but the default policy is still returned, since a
// misconfigured gate must never fail open by crashing.
func LoadPolicyFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	if err != nil {
		return DefaultPolicy(), err
	}

	var override overrideFile
	if err := yaml.Unmarshal(data, &override); err != nil {
		log.Printf("RUSTYTERM: security: malformed policy file %s: %v (using defaults)", path, err)
		return DefaultPolicy(), err
	}

	policy := DefaultPolicy()
	if len(override.BlockedForms) > 0 {
		policy.BlockedForms = override.BlockedForms
	}
	if len(override.AllowVerbs) > 0 {
		policy.AllowVerbs = override.AllowVerbs
	}
	if len(override.ConfirmVerbs) > 0 {
		policy.ConfirmVerbs = override.ConfirmVerbs
	}
	if err := policy.Compile(); err != nil {
		log.Printf("RUSTYTERM: security: invalid glob pattern in %s: %v (using defaults)", path, err)
		return DefaultPolicy(), err
	}
	return policy, nil
}

// WatchPolicyFile watches path for changes and installs a freshly loaded
// policy into gate on every write, so editing the allow/deny lists takes
// effect on a running session without a restart. The returned
// *fsnotify.Watcher must be closed by the caller on shutdown.
func WatchPolicyFile(path string, gate *Gate) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				policy, err := LoadPolicyFile(path)
				if err != nil {
					log.Printf("RUSTYTERM: security: policy reload failed: %v", err)
					continue
				}
				gate.SetPolicy(policy)
				log.Printf("RUSTYTERM: security: reloaded policy from %s", path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("RUSTYTERM: security: watcher error: %v", err)
			}
		}
	}()

	return watcher, nil
}
