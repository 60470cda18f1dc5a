// Package merge overlays one nested configuration structure on another.
//
// Override values take precedence, except that a null override never
// replaces or deletes anything. Mappings merge recursively. Lists whose
// items are records carrying a "name" key merge item by item on that key,
// so a caller can change one field of one entry in a long list of defaulted
// entries without repeating the rest. Any other list is replaced wholesale.
//
// The by-name result keeps base items in base order and appends override
// items with new names in override order.
package merge
