// Package discovery provides mDNS-based discovery of Quill endpoints.
//
// Endpoints advertise a `_quill._tcp` service whose TXT records carry
// the endpoint ID, the transport scheme (plain or secure) and the
// protocol version. Clients browse for endpoints and turn a discovered
// Endpoint into a transport location via Endpoint.Location.
//
// Discovery lives outside the transport core: it resolves a service
// name to an address before a Transport is constructed, and plays no
// part in the connection lifecycle afterwards.
package discovery
