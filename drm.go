package epub

import (
	"fmt"
	"strings"

	"github.com/simp-lee/epubkit/xmldoc"
)

const (
	encryptionPath = "META-INF/encryption.xml"
	sinfPath       = "META-INF/sinf.xml" // Apple FairPlay
)

// Font obfuscation algorithms. These mangle embedded fonts only and do not
// stop the book from being read.
var fontObfuscationAlgorithms = map[string]bool{
	"http://www.idpf.org/2008/embedding": true, // IDPF
	"http://ns.adobe.com/pdf/enc#RC":     true, // Adobe
}

// drmSchemes maps namespace prefixes seen in encryption.xml to scheme names.
var drmSchemes = []struct{ prefix, name string }{
	{"http://ns.adobe.com/adept", "Adobe ADEPT"},
	{"http://readium.org/2014/01/lcp", "Readium LCP"},
}

// checkDRM inspects META-INF/sinf.xml and META-INF/encryption.xml. It
// fails with ErrDRMProtected when any resource is encrypted with something
// other than font obfuscation, and reports whether font obfuscation was
// seen. An unparsable encryption.xml counts as DRM.
func checkDRM(be backend) (fontObfuscation bool, err error) {
	if _, err := be.fetch(sinfPath); err == nil {
		return false, fmt.Errorf("%w: Apple FairPlay", ErrDRMProtected)
	} else if !isNotFound(err) {
		return false, err
	}

	data, err := be.fetch(encryptionPath)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	doc, err := xmldoc.Parse(data)
	if err != nil {
		return false, fmt.Errorf("%w: unreadable %s", ErrDRMProtected, encryptionPath)
	}

	for _, ed := range doc.FindAll("EncryptedData") {
		var algo string
		if m, ok := doc.FirstChild(ed, "EncryptionMethod"); ok {
			algo, _ = doc.Attr(m, "Algorithm")
		}
		if fontObfuscationAlgorithms[algo] {
			fontObfuscation = true
			continue
		}
		return false, fmt.Errorf("%w: %s", ErrDRMProtected, drmScheme(doc, ed))
	}
	return fontObfuscation, nil
}

// drmScheme names the scheme by scanning attribute values below n.
func drmScheme(doc *xmldoc.Document, n xmldoc.NodeID) string {
	if name, ok := findScheme(doc, n); ok {
		return name
	}
	return "unknown scheme"
}

func findScheme(doc *xmldoc.Document, n xmldoc.NodeID) (string, bool) {
	for _, a := range doc.Attrs(n) {
		for _, s := range drmSchemes {
			if strings.HasPrefix(a.Value, s.prefix) {
				return s.name, true
			}
		}
	}
	for _, c := range doc.Elements(n) {
		if name, ok := findScheme(doc, c); ok {
			return name, true
		}
	}
	return "", false
}
