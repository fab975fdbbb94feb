// Package avsync pairs independently-transmitted audio and video streams
// per remote sender, without a shared clock.
//
// Encoded video frames are buffered per sender; arriving audio is handed to
// the playback queue and then used as the release trigger: every buffered
// frame whose timestamp is at or before the audio chunk's timestamp is
// released to the renderer, in non-decreasing timestamp order. Audio is the
// synchronization clock because playback already smooths its own delay,
// while video is visually forgiving of running slightly late.
package avsync
