package printing

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// DefaultsFileName is the file holding the last used print options
const DefaultsFileName = "print.yaml"

type defaultsFile struct {
	PageSetup *PageSetup `yaml:"page_setup"`
	Settings  Settings   `yaml:"settings"`
}

// FileDefaults keeps print defaults in a YAML file in the config dir
type FileDefaults struct {
	path      string
	pageSetup *PageSetup
	settings  Settings
}

// LoadDefaults reads dir/print.yaml. A missing or broken file yields the
// built-in defaults.
func LoadDefaults(dir string) *FileDefaults {
	d := &FileDefaults{
		path:      filepath.Join(dir, DefaultsFileName),
		pageSetup: DefaultPageSetup(),
		settings:  Settings{},
	}
	data, err := os.ReadFile(d.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("SCRIBE Print: reading %s: %v", d.path, err)
		}
		return d
	}
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		log.Printf("SCRIBE Print: parsing %s: %v", d.path, err)
		return d
	}
	if f.PageSetup != nil {
		d.pageSetup = f.PageSetup
	}
	if f.Settings != nil {
		d.settings = f.Settings
	}
	return d
}

// PageSetup returns a copy of the default page setup
func (d *FileDefaults) PageSetup() *PageSetup { return d.pageSetup.Copy() }

// PrintSettings returns a copy of the default settings
func (d *FileDefaults) PrintSettings() Settings { return d.settings.Copy() }

func (d *FileDefaults) SetPageSetup(p *PageSetup) {
	d.pageSetup = p.Copy()
	d.save()
}

func (d *FileDefaults) SetPrintSettings(s Settings) {
	d.settings = s.Copy()
	d.save()
}

func (d *FileDefaults) save() {
	if err := d.Save(); err != nil {
		log.Printf("SCRIBE Print: saving defaults: %v", err)
	}
}

// Save writes the defaults file
func (d *FileDefaults) Save() error {
	data, err := yaml.Marshal(&defaultsFile{PageSetup: d.pageSetup, Settings: d.settings})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return err
	}
	return os.WriteFile(d.path, data, 0644)
}
