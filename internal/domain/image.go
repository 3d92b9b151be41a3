package domain

// OSImages maps OS selector keys to container image references.
var OSImages = map[string]string{
	"ubuntu2404": "ubuntu:24.04",
	"ubuntu2204": "ubuntu:22.04",
	"debian12":   "debian:12",
	"debian11":   "debian:11",
}

// DefaultOSKey is used when no OS was selected.
const DefaultOSKey = "ubuntu2204"

// ImageForOS resolves an OS selector key, falling back to the default image.
func ImageForOS(key string) (osKey, image string) {
	if image, ok := OSImages[key]; ok {
		return key, image
	}
	return DefaultOSKey, OSImages[DefaultOSKey]
}
