package ocflv1

import "github.com/ocfl-archive/ocflgo"

const (
	inventoryFile = `inventory.json`
	contentDir    = `content`
	extensionsDir = `extensions`
)

var (
	ocflv1_0    = ocfl.Spec("1.0")
	ocflv1_1    = ocfl.Spec("1.1")
	defaultSpec = ocflv1_1

	ocflVerSupported = map[ocfl.Spec]bool{
		ocflv1_0: true,
		ocflv1_1: true,
	}
)

const (
	layoutName           = `ocfl_layout.json`
	extensionConfigFile  = `config.json`
	descriptionKey       = `description`
	extensionKey         = `extension`
	storeRoot            = ocfl.NamasteTypeRoot
)
