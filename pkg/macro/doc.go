// Package macro provides the keyboard and mouse macro engine: it records a
// timestamped timeline of live input and replays it with the original
// relative timing.
//
// An Engine is the single integration point for shells such as the
// interactive terminal session and the headless play command. It composes
// the timeline store, the recorder, the player and the mode coordinator,
// and exposes one control surface:
//
//	eng, err := macro.New(macro.Options{Injector: xdotool.New()})
//	eng.StartRecording()
//	// ... live input arrives through eng.HandleInput or an attached observer
//	eng.StopRecording()
//	eng.Save("macro.json")
//	eng.Play()
//
// # Concurrency
//
// All methods are safe for concurrent use. Recording and playback are
// mutually exclusive: StartRecording fails while playing, Play fails while
// recording, and at most one playback runs at a time. Play returns at once;
// replay runs on its own goroutine and can be cancelled with StopPlayback
// or the cancel key binding.
//
// State conflicts (E_RECORDING_ACTIVE, E_PLAYBACK_ACTIVE, E_TIMELINE_EMPTY)
// are returned and logged but never stop the engine. Only Quit does.
package macro
