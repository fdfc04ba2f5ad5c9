//go:build !whisper

package doctor

const whisperBuild = false
