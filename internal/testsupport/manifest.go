package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleManifestText is page text as pdftotext -layout renders a cargo
// manifest addressed to PAMALS, with one line for another recipient.
const SampleManifestText = `FORCA AEREA BRASILEIRA - MANIFESTO DE CARGA
Manifesto: 202531000635                                 Página 1 de 1
Emissão: 24/11/2025 08:30
TERMINAL DE ORIGEM: PCAN-GR          TERMINAL DE DESTINO: PCAN-LS
MISSÃO: FAB 2309
AERONAVE: C-95
REMETENTE DESTINATARIO VOLUME PESO CUBAGEM QTD EMB PRIOR
PAMASP PAMALS 251381004311/0001 25,00 0,340 04
PAMASP PAMALS 251381004370/0001 80,00 0,240 4 CAIXA 04
CABW PAMA-LS 251381009999/0001 45,00 0,180 3 ENVELOPE 02
PAMASP PAMARF 251381007777/0001 10,00 0,100 1 CAIXA 04
GAP SP PAMA LS 251381004371/0001 1,00 0,010 1 ENVELOPE 04
TOTAIS 161,00 0,870
`

// WriteManifestText writes text into dir under name and returns the path.
func WriteManifestText(t testing.TB, dir, name, text string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
