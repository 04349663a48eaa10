/*
Package trust implements the reputation system of the peer core.

Every interaction the local node has with a peer ends up as a success or a
failure counter in the Ledger. Peers gossip their own tables, so the ledger
holds an opinion matrix over all known nodes. EigenTrust turns that matrix
into a global trust vector anchored on the pre-trusted nodes, and the
selectors draw synchronization partners proportionally to it.

A Context snapshots the inputs of one round and must be rebuilt every round,
since registry membership changes in between.
*/
package trust
