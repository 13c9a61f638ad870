package inventory

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const contactsKey = "host_emails"

// addContact maps host to email under host_emails unless host already has an
// entry.
func addContact(data []byte, host, email string) ([]byte, bool, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, false, err
	}
	root := doc.Content[0]

	contacts := lookup(root, contactsKey)
	switch {
	case contacts == nil:
		contacts = newMapping()
		root.Content = append(root.Content, newString(contactsKey), contacts)
	case isNull(contacts):
		*contacts = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: contacts.Line, Column: contacts.Column}
	case contacts.Kind != yaml.MappingNode:
		return nil, false, fmt.Errorf("%s is not a mapping", contactsKey)
	}

	if lookup(contacts, host) != nil {
		return data, false, nil
	}
	contacts.Content = append(contacts.Content, newString(host), newString(email))

	out, err := encodeDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// removeContact deletes host from host_emails.
func removeContact(data []byte, host string) ([]byte, bool, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, false, err
	}

	if !deleteKey(lookup(doc.Content[0], contactsKey), host) {
		return data, false, nil
	}

	out, err := encodeDocument(doc)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}
