// Package schema loads the shared broker dispatch-table artifact and checks the local
// encoders against it.
package schema

// BrokerSchema describes the relay chain's Broker pallet dispatch table and the XCM
// instruction indexes the allocator relies on.
type BrokerSchema struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Description string           `json:"description,omitempty"`
	PalletIndex uint8            `json:"palletIndex"`
	Calls       map[string]uint8 `json:"calls"`
	Xcm         XcmIndexes       `json:"xcm"`
}

// XcmIndexes are the XCM discriminants used by the outbound envelope.
type XcmIndexes struct {
	Version         uint8 `json:"version"`
	UnpaidExecution uint8 `json:"unpaidExecution"`
	Transact        uint8 `json:"transact"`
	OriginNative    uint8 `json:"originNative"`
}
