// Package media detects and loads the image and audio payloads that
// vision and transcription steps send to the provider
package media
