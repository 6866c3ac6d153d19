// Command divimport recovers a Divi mobile wallet into Divi Desktop by
// driving a local divid daemon: wallet recreation from the 12-word phrase,
// blockchain sync, and desktop handoff.
package main
