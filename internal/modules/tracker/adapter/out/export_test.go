package out

var BridgeIDs = bridgeIDs
