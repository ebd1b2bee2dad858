// Package dashboard holds the subscriptions admin page state.
//
// A Controller owns everything one browser session sees: the list mirrored from
// the subscriptions API, the add/edit form, the delete confirmation and the
// notifications produced by each operation. Rendering lives in transport/http;
// the Controller can be driven and inspected without it.
package dashboard
