// Package webtoon tracks which pages of a continuously scrolled chapter are on
// screen and decides which pages should be loaded.
//
// The caller forwards viewport notifications (PageEnter, PageLeave,
// ScrollToBottom) and explicit jumps (JumpToPage) to an Engine and reads back
// LoadSet and IsJumping after each event. The Engine owns one chapter session
// at a time and is not safe for concurrent use: all calls must come from a
// single owner, such as a bubbletea Update loop.
package webtoon
